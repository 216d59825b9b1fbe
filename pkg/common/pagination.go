package common

import (
	"net/http"
	"strconv"
)

// PageParams represents cursor pagination parameters
type PageParams struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
}

// DefaultPageParams returns default pagination parameters
func DefaultPageParams() PageParams {
	return PageParams{Limit: 20}
}

// ExtractPageParams extracts pagination parameters from request
func ExtractPageParams(r *http.Request) PageParams {
	params := DefaultPageParams()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			if n > 100 {
				n = 100 // Max page size
			}
			params.Limit = n
		}
	}

	params.Cursor = r.URL.Query().Get("cursor")

	return params
}

// PaginatedResult represents a cursor-paginated result
type PaginatedResult struct {
	Items      interface{} `json:"items"`
	NextCursor string      `json:"nextCursor,omitempty"`
}
