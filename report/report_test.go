package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() QuoteDocument {
	return QuoteDocument{
		Number:          "QT-2026-0001",
		Status:          "approved",
		IssuedAt:        "10 Mar 2026",
		PropertyAddress: "1 George St, Sydney",
		Postcode:        "2000",
		CleaningType:    "general",
		Rooms:           3,
		Lines: []DocumentLine{
			{Description: "Oven <deep>", Type: "addon", Quantity: "1", UnitPrice: "20.00", Total: "20.00", Taxable: true},
		},
		Totals: []TotalLine{
			{Label: "Subtotal", Amount: "165.00"},
			{Label: "GST", Amount: "16.50"},
			{Label: "Total", Amount: "181.50", Grand: true},
		},
	}
}

func TestQuoteHTMLEscapesContent(t *testing.T) {
	html, err := QuoteHTML(sampleDocument())
	require.NoError(t, err)
	assert.Contains(t, html, "Quote QT-2026-0001")
	assert.Contains(t, html, "Oven &lt;deep&gt;")
	assert.Contains(t, html, `class="grand"`)
	assert.Contains(t, html, "181.50")
}

func TestWriteQuoteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQuoteCSV(&buf, sampleDocument()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "Quote", records[0][0])
	assert.Equal(t, []string{"QT-2026-0001", "Oven <deep>", "addon", "1", "20.00", "20.00", "true"}, records[1])
	assert.Equal(t, "181.50", records[4][5])
}

func TestRenderHTMLPostsMultipartForm(t *testing.T) {
	var gotPath, gotWidth string
	var gotHTML []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotWidth = r.FormValue("paperWidth")
		f, _, err := r.FormFile("files")
		require.NoError(t, err)
		gotHTML, _ = io.ReadAll(f)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/", 0).RenderHTML(context.Background(), "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
	assert.Equal(t, "/forms/chromium/convert/html", gotPath)
	assert.Equal(t, a4Width, gotWidth)
	assert.Equal(t, "<p>hi</p>", string(gotHTML))
}

func TestRenderHTMLReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).RenderHTML(context.Background(), "<p/>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "chromium crashed")

	assert.Error(t, NewClient(srv.URL, 0).Ping(context.Background()))
}
