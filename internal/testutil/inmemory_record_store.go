package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/query"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
)

// InMemoryRecordProvider hands out one InMemoryRecordStore per entity
type InMemoryRecordProvider struct {
	mu     sync.Mutex
	stores map[string]*InMemoryRecordStore
}

func NewInMemoryRecordProvider() *InMemoryRecordProvider {
	return &InMemoryRecordProvider{stores: make(map[string]*InMemoryRecordStore)}
}

func (p *InMemoryRecordProvider) For(e *schema.Entity) record.Repository {
	return p.Store(e)
}

// Store returns the concrete store of e so tests can seed and inspect it
func (p *InMemoryRecordProvider) Store(e *schema.Entity) *InMemoryRecordStore {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[e.Name]; ok {
		return s
	}
	s := NewInMemoryRecordStore(e)
	p.stores[e.Name] = s
	return s
}

// Clear empties every store
func (p *InMemoryRecordProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.stores {
		s.Clear()
	}
}

// InMemoryRecordStore evaluates filters with query.Match, the same semantics
// the postgres renderer gives them
type InMemoryRecordStore struct {
	*InMemoryStore[*record.Record]
	entity *schema.Entity
}

func NewInMemoryRecordStore(e *schema.Entity) *InMemoryRecordStore {
	return &InMemoryRecordStore{
		InMemoryStore: NewInMemoryStore[*record.Record](),
		entity:        e,
	}
}

func (s *InMemoryRecordStore) Entity() *schema.Entity {
	return s.entity
}

func (s *InMemoryRecordStore) Create(ctx context.Context, r *record.Record) error {
	if err := s.checkUnique(r); err != nil {
		return err
	}
	if err := s.InMemoryStore.Create(ctx, r.ID, r.Clone()); err != nil {
		return s.conflict(r.ID)
	}
	return nil
}

func (s *InMemoryRecordStore) Get(ctx context.Context, id string) (*record.Record, error) {
	r, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, s.notFound(id)
	}
	return r.Clone(), nil
}

func (s *InMemoryRecordStore) List(ctx context.Context, f *record.Filter) ([]*record.Record, error) {
	f = s.normalize(f)
	items, err := s.InMemoryStore.List(ctx, s.matcher(f), func(a, b *record.Record) bool {
		return query.Less(a, b, f.Sort, f.Order)
	}, f.Offset, f.Limit)
	if err != nil {
		return nil, err
	}

	out := make([]*record.Record, len(items))
	for i, r := range items {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *InMemoryRecordStore) Count(ctx context.Context, f *record.Filter) (int, error) {
	return s.InMemoryStore.Count(ctx, s.matcher(s.normalize(f)))
}

func (s *InMemoryRecordStore) Update(ctx context.Context, r *record.Record) error {
	if err := s.checkUnique(r); err != nil {
		return err
	}

	now := r.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	err := s.InMemoryStore.update(r.ID, func(current *record.Record) (*record.Record, error) {
		if current.Version != r.Version {
			return nil, ierr.NewErrorf("%s %s was modified concurrently", s.entity.Name, r.ID).
				WithHint("The record was changed by someone else, reload it and try again").
				WithReportableDetails(map[string]any{"id": r.ID, "version": r.Version}).
				Mark(ierr.ErrVersionConflict)
		}
		next := r.Clone()
		next.CreatedAt = current.CreatedAt
		next.Version = current.Version + 1
		next.UpdatedAt = now
		if !s.entity.SoftDeletes() {
			next.DeletedAt = nil
		}
		return next, nil
	})
	if err != nil {
		if ierr.IsNotFound(err) {
			return s.notFound(r.ID)
		}
		return err
	}

	r.Version++
	r.UpdatedAt = now
	return nil
}

func (s *InMemoryRecordStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return s.notFound(id)
	}
	return nil
}

func (s *InMemoryRecordStore) CountBy(ctx context.Context, field string, f *record.Filter) (map[string]int, error) {
	out := make(map[string]int)
	for _, r := range s.matching(ctx, f) {
		v, _ := r.Get(field)
		out[groupKey(v)]++
	}
	return out, nil
}

func (s *InMemoryRecordStore) Sum(ctx context.Context, field string, f *record.Filter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range s.matching(ctx, f) {
		v, _ := r.Get(field)
		total = total.Add(toDecimal(v))
	}
	return total, nil
}

func (s *InMemoryRecordStore) SumBy(ctx context.Context, groupField, sumField string, f *record.Filter) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, r := range s.matching(ctx, f) {
		g, _ := r.Get(groupField)
		v, _ := r.Get(sumField)
		key := groupKey(g)
		out[key] = out[key].Add(toDecimal(v))
	}
	return out, nil
}

// Seed stores r as is, bypassing validation and the unique checks
func (s *InMemoryRecordStore) Seed(r *record.Record) {
	s.InMemoryStore.mu.Lock()
	defer s.InMemoryStore.mu.Unlock()
	s.InMemoryStore.items[r.ID] = r.Clone()
}

func (s *InMemoryRecordStore) matching(ctx context.Context, f *record.Filter) []*record.Record {
	match := s.matcher(s.normalize(f))
	out := make([]*record.Record, 0)
	for _, r := range s.InMemoryStore.all() {
		if match(ctx, r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *InMemoryRecordStore) normalize(f *record.Filter) *record.Filter {
	if f == nil {
		f = &record.Filter{}
	}
	out := *f
	if out.Sort == "" {
		out.Sort = s.entity.DefaultSort
	}
	if out.Order == "" {
		out.Order = types.OrderDesc
	}
	return &out
}

func (s *InMemoryRecordStore) matcher(f *record.Filter) FilterFunc[*record.Record] {
	return func(_ context.Context, r *record.Record) bool {
		if s.entity.SoftDeletes() && !f.IncludeDeleted && r.IsDeleted() {
			return false
		}
		return query.Match(f.Predicate, r)
	}
}

// checkUnique mirrors the UNIQUE column constraints, soft deleted rows included
func (s *InMemoryRecordStore) checkUnique(r *record.Record) error {
	for _, f := range s.entity.UniqueFields() {
		v := r.Values[f.Name]
		if v == nil {
			continue
		}
		for _, other := range s.InMemoryStore.all() {
			if other.ID == r.ID {
				continue
			}
			if c, ok := query.Compare(other.Values[f.Name], v); ok && c == 0 {
				return s.conflict(r.ID)
			}
		}
	}
	return nil
}

func (s *InMemoryRecordStore) notFound(id string) error {
	return ierr.NewErrorf("%s %s not found", s.entity.Name, id).
		WithHintf("%s not found", s.entity.Module).
		WithReportableDetails(map[string]any{"id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryRecordStore) conflict(id string) error {
	return ierr.NewErrorf("%s %s violates a unique constraint", s.entity.Name, id).
		WithHintf("%s already exists", s.entity.Module).
		Mark(ierr.ErrAlreadyExists)
}

// groupKey renders v the way postgres casts a column to text
func groupKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case decimal.Decimal:
		return t.String()
	case types.Date:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case int64:
		return decimal.NewFromInt(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case float64:
		return decimal.NewFromFloat(n)
	}
	return decimal.Zero
}
