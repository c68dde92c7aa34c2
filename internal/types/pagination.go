package types

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage       = 1
	DefaultLimit      = 20
	MaxLimit          = 100
	AuditDefaultLimit = 50
	AuditMaxLimit     = 500
	// ExportMaxRows caps unpaginated reads used by report export
	ExportMaxRows = 10000

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// PageRequest is a normalized page/limit pair
type PageRequest struct {
	Page  int
	Limit int
}

// ParsePageRequest reads raw page and limit query values. Absent or non numeric
// values fall back to the defaults, page is clamped to 1 and limit to [1, maxLimit].
func ParsePageRequest(rawPage, rawLimit string, defaultLimit, maxLimit int) PageRequest {
	page, err := strconv.Atoi(strings.TrimSpace(rawPage))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	limit, err := strconv.Atoi(strings.TrimSpace(rawLimit))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	return PageRequest{Page: clampPage(page, limit), Limit: limit}
}

// Offset returns the number of rows skipped before this page
func (p PageRequest) Offset() int {
	return Paginate(p.Page, p.Limit, 0).Offset
}

// Page is the result of laying totalCount rows out in pages of Limit
type Page struct {
	Offset int
	Limit  int
	Page   int
	Pages  int
}

// Paginate computes offset and page metadata. A page below 1 is clamped to 1
// and a non positive limit falls back to DefaultLimit.
func Paginate(page, limit, totalCount int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if totalCount < 0 {
		totalCount = 0
	}
	page = clampPage(page, limit)

	pages := 0
	if totalCount > 0 {
		pages = (totalCount + limit - 1) / limit
	}

	return Page{
		Offset: (page - 1) * limit,
		Limit:  limit,
		Page:   page,
		Pages:  pages,
	}
}

// clampPage keeps (page-1)*limit inside int, a page that far out is past the end anyway
func clampPage(page, limit int) int {
	if last := math.MaxInt / limit; page > last {
		return last
	}
	return page
}

// PaginationResponse represents standardized pagination metadata
type PaginationResponse struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPaginationResponse creates the pagination block returned with every list
func NewPaginationResponse(req PageRequest, total int) PaginationResponse {
	p := Paginate(req.Page, req.Limit, total)
	return PaginationResponse{
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: p.Pages,
	}
}

// ListResponse represents a paginated response with items
type ListResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// NewListResponse creates a new list response with pagination
func NewListResponse[T any](items []T, req PageRequest, total int) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{
		Items:      items,
		Pagination: NewPaginationResponse(req, total),
	}
}
