package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/kewsys/registry/internal/errors"
)

// FilterFunc is a generic filter function type
type FilterFunc[T any] func(ctx context.Context, item T) bool

// SortFunc is a generic sort function type
type SortFunc[T any] func(i, j T) bool

// InMemoryStore implements a generic in-memory store
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewInMemoryStore creates a new InMemoryStore
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

// Create adds a new item to the store
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewErrorf("item %s already exists", id).
			WithHint("Item already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[id] = item
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[id]; exists {
		return item, nil
	}

	var zero T
	return zero, ierr.NewErrorf("item %s not found", id).
		WithHint("Item not found").
		Mark(ierr.ErrNotFound)
}

// List returns the matching items sorted by sortFn. A zero limit returns every
// item from offset on.
func (s *InMemoryStore[T]) List(ctx context.Context, filterFn FilterFunc[T], sortFn SortFunc[T], offset, limit int) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0)
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			result = append(result, item)
		}
	}

	if sortFn != nil {
		sort.SliceStable(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return []T{}, nil
	}
	end := len(result)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return result[offset:end], nil
}

// Count returns the total number of items matching the filter
func (s *InMemoryStore[T]) Count(ctx context.Context, filterFn FilterFunc[T]) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			count++
		}
	}

	return count, nil
}

// Update replaces an existing item
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item %s not found", id).
			WithHint("Item not found").
			Mark(ierr.ErrNotFound)
	}

	s.items[id] = item
	return nil
}

// Delete removes an item from the store
func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item %s not found", id).
			WithHint("Item not found").
			Mark(ierr.ErrNotFound)
	}

	delete(s.items, id)
	return nil
}

// Clear removes all items from the store
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

// update runs fn on the stored item under the write lock
func (s *InMemoryStore[T]) update(id string, fn func(current T) (T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.items[id]
	if !exists {
		return ierr.NewErrorf("item %s not found", id).
			WithHint("Item not found").
			Mark(ierr.ErrNotFound)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	s.items[id] = next
	return nil
}

// all snapshots every stored item
func (s *InMemoryStore[T]) all() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out
}
