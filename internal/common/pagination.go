package common

import (
	"net/http"
	"strconv"
)

// MaxPageSize caps list endpoints. The catalog is a few hundred products and
// receipts are browsed a day at a time, so anything larger is a runaway
// client.
const MaxPageSize = 100

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination extracts page and limit query parameters, clamping the
// page size to MaxPageSize.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	return
}
