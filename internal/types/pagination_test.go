package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name   string
		page   int
		limit  int
		total  int
		offset int
		pages  int
		outPg  int
	}{
		{"first page", 1, 20, 45, 0, 3, 1},
		{"third page", 3, 20, 45, 40, 3, 3},
		{"exact multiple", 2, 10, 30, 10, 3, 2},
		{"empty table", 1, 20, 0, 0, 0, 1},
		{"zero page clamped", 0, 20, 5, 0, 1, 1},
		{"negative page clamped", -4, 20, 5, 0, 1, 1},
		{"zero limit defaults", 1, 0, 41, 0, 3, 1},
		{"page beyond end", 9, 10, 15, 80, 2, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.offset, p.Offset)
			assert.Equal(t, tt.pages, p.Pages)
			assert.Equal(t, tt.outPg, p.Page)
		})
	}
}

// pages == ceil(total/limit) and the visible item count is min(limit, max(0, total-offset))
func TestPaginateCoversAllRows(t *testing.T) {
	for total := 0; total <= 60; total++ {
		for limit := 1; limit <= 12; limit++ {
			p := Paginate(1, limit, total)
			expectedPages := 0
			if total > 0 {
				expectedPages = total / limit
				if total%limit != 0 {
					expectedPages++
				}
			}
			assert.Equal(t, expectedPages, p.Pages, "total=%d limit=%d", total, limit)

			seen := 0
			for page := 1; page <= p.Pages+1; page++ {
				pp := Paginate(page, limit, total)
				visible := min(limit, max(0, total-pp.Offset))
				seen += visible
			}
			assert.Equal(t, total, seen, "total=%d limit=%d", total, limit)
		}
	}
}

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		limit    string
		defLimit int
		maxLimit int
		want     PageRequest
	}{
		{"defaults", "", "", DefaultLimit, MaxLimit, PageRequest{Page: 1, Limit: 20}},
		{"audit default", "", "", AuditDefaultLimit, AuditMaxLimit, PageRequest{Page: 1, Limit: 50}},
		{"non numeric", "abc", "x", DefaultLimit, MaxLimit, PageRequest{Page: 1, Limit: 20}},
		{"negative page", "-2", "5", DefaultLimit, MaxLimit, PageRequest{Page: 1, Limit: 5}},
		{"limit capped", "2", "1000", DefaultLimit, MaxLimit, PageRequest{Page: 2, Limit: 100}},
		{"zero limit", "3", "0", DefaultLimit, MaxLimit, PageRequest{Page: 3, Limit: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePageRequest(tt.page, tt.limit, tt.defLimit, tt.maxLimit))
		})
	}
}

func TestNewListResponseNeverNil(t *testing.T) {
	resp := NewListResponse[string](nil, PageRequest{Page: 1, Limit: 20}, 0)
	assert.NotNil(t, resp.Items)
	assert.Equal(t, PaginationResponse{Total: 0, Page: 1, Limit: 20, Pages: 0}, resp.Pagination)
}

func TestHugePageKeepsOffsetPositive(t *testing.T) {
	req := ParsePageRequest("4611686018427387904", "20", DefaultLimit, MaxLimit)
	assert.Equal(t, 20, req.Limit)
	assert.Positive(t, req.Offset())
	assert.LessOrEqual(t, req.Offset(), math.MaxInt-req.Limit)

	p := Paginate(math.MaxInt, 7, 10)
	assert.Positive(t, p.Offset)
	assert.Equal(t, 2, p.Pages)
}
