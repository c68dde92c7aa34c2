package record

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kewsys/registry/internal/schema"
	"github.com/samber/lo"
)

// Record is one row of a registry entity. Values holds the domain fields in
// their canonical types, base columns live on the struct.
type Record struct {
	ID        string
	Values    map[string]any
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	// Related holds eagerly loaded relation views keyed by relation name
	Related map[string]any
}

// New builds a fresh record at version 1
func New(id string, values map[string]any, now time.Time) *Record {
	return &Record{
		ID:        id,
		Values:    values,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Get reads a field, base fields included
func (r *Record) Get(field string) (any, bool) {
	switch field {
	case schema.FieldID:
		return r.ID, true
	case schema.FieldVersion:
		return r.Version, true
	case schema.FieldCreatedAt:
		return r.CreatedAt, true
	case schema.FieldUpdatedAt:
		return r.UpdatedAt, true
	case schema.FieldDeletedAt:
		if r.DeletedAt == nil {
			return nil, true
		}
		return *r.DeletedAt, true
	}
	v, ok := r.Values[field]
	return v, ok
}

// String reads a string field, empty when absent
func (r *Record) String(field string) string {
	v, _ := r.Values[field].(string)
	return v
}

// IsDeleted reports a soft deleted row
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// Clone copies the record so callers can mutate values without touching stored state
func (r *Record) Clone() *Record {
	out := *r
	out.Values = lo.Assign(map[string]any{}, r.Values)
	if r.DeletedAt != nil {
		at := *r.DeletedAt
		out.DeletedAt = &at
	}
	out.Related = nil
	return &out
}

// Snapshot flattens the record into the map recorded by audit entries
func (r *Record) Snapshot() map[string]any {
	out := make(map[string]any, len(r.Values)+5)
	for k, v := range r.Values {
		out[k] = v
	}
	out[schema.FieldID] = r.ID
	out[schema.FieldVersion] = r.Version
	out[schema.FieldCreatedAt] = r.CreatedAt
	out[schema.FieldUpdatedAt] = r.UpdatedAt
	if r.DeletedAt != nil {
		out[schema.FieldDeletedAt] = *r.DeletedAt
	}
	return out
}

// MarshalJSON renders the flat camelCase shape clients see
func (r *Record) MarshalJSON() ([]byte, error) {
	out := r.Snapshot()
	if _, ok := out[schema.FieldDeletedAt]; !ok {
		out[schema.FieldDeletedAt] = nil
	}
	for k, v := range r.Related {
		out[k] = v
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(out)
}
