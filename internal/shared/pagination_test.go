package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 20, p.Offset())

	p = NewPagination(0, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.TotalPages)
}

func TestParsePage(t *testing.T) {
	p := ParsePage(url.Values{"page": {"3"}, "per_page": {"500"}})
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, 200, p.Offset())

	p = ParsePage(url.Values{"page": {"abc"}})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
}
