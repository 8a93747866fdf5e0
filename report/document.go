package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/sparkleops/sparkle-ops/web"
)

// QuoteDocument is the printable view of a quote. Amounts are preformatted.
type QuoteDocument struct {
	Number                string
	Status                string
	IssuedAt              string
	ExpiresAt             string
	PropertyAddress       string
	Postcode              string
	CleaningType          string
	Rooms                 int
	SquareMeters          string
	NDISParticipantNumber string
	Notes                 string
	Lines                 []DocumentLine
	Totals                []TotalLine
}

// DocumentLine is one printed item.
type DocumentLine struct {
	Description string
	Type        string
	Quantity    string
	UnitPrice   string
	Total       string
	Taxable     bool
}

// TotalLine is one row of the totals block.
type TotalLine struct {
	Label  string
	Amount string
	Grand  bool
}

var (
	quoteTmplOnce sync.Once
	quoteTmpl     *template.Template
	quoteTmplErr  error
)

func quoteTemplate() (*template.Template, error) {
	quoteTmplOnce.Do(func() {
		quoteTmpl, quoteTmplErr = template.ParseFS(web.Templates, "templates/quote.html")
	})
	return quoteTmpl, quoteTmplErr
}

// QuoteHTML renders the quote document template.
func QuoteHTML(doc QuoteDocument) (string, error) {
	tmpl, err := quoteTemplate()
	if err != nil {
		return "", fmt.Errorf("report: parse quote template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("report: render quote %s: %w", doc.Number, err)
	}
	return buf.String(), nil
}
