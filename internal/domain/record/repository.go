package record

import (
	"context"

	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
)

// Filter selects rows of one entity. A zero Limit reads every matching row.
type Filter struct {
	Predicate      types.Predicate
	Offset         int
	Limit          int
	Sort           string
	Order          string
	IncludeDeleted bool
}

// Repository stores the records of a single entity
type Repository interface {
	Entity() *schema.Entity

	Create(ctx context.Context, r *Record) error
	// Get returns the row whether or not it is soft deleted
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, f *Filter) ([]*Record, error)
	Count(ctx context.Context, f *Filter) (int, error)
	// Update writes r when the stored version still equals r.Version, then
	// increments r.Version. A stale version fails with ErrVersionConflict.
	Update(ctx context.Context, r *Record) error
	// Delete removes the row for good
	Delete(ctx context.Context, id string) error

	// CountBy counts rows per distinct value of field
	CountBy(ctx context.Context, field string, f *Filter) (map[string]int, error)
	// Sum totals field over matching rows, zero when there are none
	Sum(ctx context.Context, field string, f *Filter) (decimal.Decimal, error)
	// SumBy totals sumField per distinct value of groupField
	SumBy(ctx context.Context, groupField, sumField string, f *Filter) (map[string]decimal.Decimal, error)
}

// Provider hands out the repository of an entity
type Provider interface {
	For(entity *schema.Entity) Repository
}
