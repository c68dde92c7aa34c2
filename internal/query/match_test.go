package query

import (
	"testing"
	"time"

	"github.com/kewsys/registry/internal/domain/record"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func mustTime(raw string) time.Time {
	t, err := types.ParseTime(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMatch(t *testing.T) {
	r := record.New("r1", map[string]any{
		"assetName":     "Dell Latitude",
		"purchasePrice": decimal.RequireFromString("2000.50"),
		"purchaseDate":  types.NewDate(mustTime("2025-01-15")),
		"currentStock":  int64(3),
		"minimumStock":  int64(5),
		"notes":         nil,
		"active":        true,
	}, mustTime("2025-02-01T08:00:00Z"))

	tests := []struct {
		name string
		pred types.Predicate
		want bool
	}{
		{"nil matches", nil, true},
		{"empty and", types.And{}, true},
		{"empty or", types.Or{}, false},
		{"eq string", types.Eq{Field: "assetName", Value: "Dell Latitude"}, true},
		{"eq is case sensitive", types.Eq{Field: "assetName", Value: "dell latitude"}, false},
		{"eq decimal vs float", types.Eq{Field: "purchasePrice", Value: 2000.5}, true},
		{"eq bool", types.Eq{Field: "active", Value: true}, true},
		{"eq id", types.Eq{Field: "id", Value: "r1"}, true},
		{"in", types.In{Field: "currentStock", Values: []any{int64(1), int64(3)}}, true},
		{"not in", types.In{Field: "currentStock", Values: []any{int64(4)}}, false},
		{"contains ignores case", types.Contains{Field: "assetName", Value: "LATI"}, true},
		{"contains on non string", types.Contains{Field: "currentStock", Value: "3"}, false},
		{"range inside", types.Range{Field: "purchaseDate", From: types.NewDate(mustTime("2025-01-01")), To: types.NewDate(mustTime("2025-01-31"))}, true},
		{"range inclusive", types.Range{Field: "purchaseDate", From: types.NewDate(mustTime("2025-01-15"))}, true},
		{"range outside", types.Range{Field: "purchaseDate", To: types.NewDate(mustTime("2025-01-14"))}, false},
		{"range date vs timestamp", types.Range{Field: "purchaseDate", From: mustTime("2025-01-15T00:00:00Z")}, true},
		{"range on created", types.Range{Field: "createdAt", From: mustTime("2025-02-01"), To: types.EndOfDay(mustTime("2025-02-01"))}, true},
		{"range on null", types.Range{Field: "notes", From: "a"}, false},
		{"is null", types.IsNull{Field: "notes"}, true},
		{"missing is null", types.IsNull{Field: "supplier"}, true},
		{"compare fields", types.CompareFields{Left: "currentStock", Op: types.OpLTE, Right: "minimumStock"}, true},
		{"compare fields false", types.CompareFields{Left: "currentStock", Op: types.OpGT, Right: "minimumStock"}, false},
		{"compare against null", types.CompareFields{Left: "currentStock", Op: types.OpLT, Right: "maximumStock"}, false},
		{"or", types.Or{types.Eq{Field: "assetName", Value: "x"}, types.Contains{Field: "assetName", Value: "dell"}}, true},
		{"and", types.And{types.Eq{Field: "active", Value: true}, types.Eq{Field: "currentStock", Value: int64(4)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pred, r))
		})
	}
}

func TestLess(t *testing.T) {
	a := record.New("a", map[string]any{"name": "Alpha", "price": int64(10)}, mustTime("2025-01-01"))
	b := record.New("b", map[string]any{"name": "Beta", "price": nil}, mustTime("2025-01-02"))
	c := record.New("c", map[string]any{"name": "Alpha", "price": int64(5)}, mustTime("2025-01-03"))

	assert.True(t, Less(a, b, "name", types.OrderAsc))
	assert.True(t, Less(b, a, "name", types.OrderDesc))
	assert.True(t, Less(a, c, "name", types.OrderAsc), "ties fall back to the id")
	assert.True(t, Less(c, a, "price", types.OrderAsc))
	assert.True(t, Less(a, b, "price", types.OrderAsc), "nulls sort last ascending")
	assert.True(t, Less(c, b, "createdAt", types.OrderDesc))
}
