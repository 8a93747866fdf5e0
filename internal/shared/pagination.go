package shared

import (
	"math"
	"net/url"
	"strconv"
)

// MaxPerPage bounds list page sizes.
const MaxPerPage = 100

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = normalizePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset is the number of rows preceding the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ParsePage reads page and per_page query parameters. Bad values fall back to
// the defaults.
func ParsePage(q url.Values) Pagination {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page, perPage = normalizePage(page, perPage)
	return Pagination{Page: page, PerPage: perPage}
}

func normalizePage(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return page, perPage
}
