package schema

import (
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
)

// DeletePolicy decides whether delete hides or removes a row
type DeletePolicy int

const (
	SoftDelete DeletePolicy = iota
	HardDelete
)

// FilterKind is how a query parameter constrains a field
type FilterKind string

const (
	FilterExact    FilterKind = "exact"
	FilterContains FilterKind = "contains"
	// FilterRange reads <param>From and <param>To
	FilterRange FilterKind = "range"
	// FilterCompare enables a field to field comparison when the param is true
	FilterCompare FilterKind = "compare"
)

// Filter declares a recognised query parameter
type Filter struct {
	Param   string
	Field   string
	Kind    FilterKind
	Compare *types.CompareFields
}

// Relation is a reference eagerly attached on reads
type Relation struct {
	// Name is the JSON key the related view is attached under
	Name  string
	Field string
	// Target is RelationUsers or the Name of another entity
	Target string
}

// RelationUsers targets the users table, only public user fields are attached
const RelationUsers = "users"

// Transform is a pre-persist step run on the full set of values of a record
// after defaults and merging, right before it is written
type Transform func(values map[string]any) error

// Alert emits Event through the notifier when Condition starts to hold
type Alert struct {
	Event     string
	Condition func(values map[string]any) bool
}

// Counter is a named count in the statistics summary
type Counter struct {
	Name      string
	Predicate types.Predicate
}

// GroupSum totals SumField per distinct value of Field
type GroupSum struct {
	Name     string
	Field    string
	SumField string
}

// Stats declares the aggregate summary of an entity
type Stats struct {
	GroupBy  []string
	Counters []Counter
	SumField string
	SumAs    string
	Groups   []GroupSum
}

// Action is an RBAC action on an entity
type Action string

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

// Access lists the roles allowed per action. An empty Read list admits every authenticated role.
type Access struct {
	Read    []types.Role
	Write   []types.Role
	Delete  []types.Role
	Approve []types.Role
}

// Roles returns the allow-list for action
func (a Access) Roles(action Action) []types.Role {
	switch action {
	case ActionRead:
		return a.Read
	case ActionWrite:
		return a.Write
	case ActionDelete:
		return a.Delete
	case ActionApprove:
		return a.Approve
	}
	return nil
}

// Entity describes one record type and everything the generic engine needs to serve it
type Entity struct {
	// Name is the route segment and RBAC entity ex livestock-movements
	Name string
	// Module is the audit module name ex LivestockMovement
	Module string
	// Event prefixes notifier events ex livestockMovement:created. Empty disables live events.
	Event   string
	Table   string
	ListKey string
	ItemKey string
	// Owner is the field stamped with the acting identity on create
	Owner  string
	Fields []Field
	// Filters are ANDed together
	Filters []Filter
	// Search fields are ORed under the single search parameter
	Search []string
	// DateRange is the field constrained by startDate and endDate
	DateRange   string
	DefaultSort string
	Delete      DeletePolicy
	Workflow    *Workflow
	Transforms  []Transform
	Alerts      []Alert
	Relations   []Relation
	Stats       Stats
	Access      Access

	index map[string]*Field
}

// init indexes fields and adds the owner and workflow status fields
func (e *Entity) init() {
	if e.Owner != "" && !lo.ContainsBy(e.Fields, func(f Field) bool { return f.Name == e.Owner }) {
		e.Fields = append(e.Fields, Field{Name: e.Owner, Type: TypeRef, ReadOnly: true})
	}
	if e.Workflow != nil {
		e.Fields = append(e.Fields, e.Workflow.fields()...)
	}
	if e.DefaultSort == "" {
		e.DefaultSort = FieldCreatedAt
	}
	if e.DateRange == "" {
		e.DateRange = FieldCreatedAt
	}

	e.index = make(map[string]*Field, len(e.Fields))
	for i := range e.Fields {
		if _, dup := e.index[e.Fields[i].Name]; dup {
			continue
		}
		e.index[e.Fields[i].Name] = &e.Fields[i]
	}
}

// Field returns the declared field called name
func (e *Entity) Field(name string) (*Field, bool) {
	f, ok := e.index[name]
	return f, ok
}

// IsSortable reports whether name may be used in the sort parameter
func (e *Entity) IsSortable(name string) bool {
	switch name {
	case FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	_, ok := e.index[name]
	return ok
}

// IsProtected reports fields a client may never set through create or update
func (e *Entity) IsProtected(name string) bool {
	switch name {
	case FieldID, FieldCreatedAt, FieldUpdatedAt, FieldDeletedAt, FieldVersion:
		return true
	}
	if name == e.Owner {
		return true
	}
	f, ok := e.index[name]
	return ok && f.ReadOnly
}

// SoftDeletes reports whether delete keeps the row with a marker
func (e *Entity) SoftDeletes() bool {
	return e.Delete == SoftDelete
}

// UniqueFields returns the fields that must not repeat within the table
func (e *Entity) UniqueFields() []*Field {
	out := make([]*Field, 0, 1)
	for i := range e.Fields {
		if e.Fields[i].Unique {
			out = append(out, &e.Fields[i])
		}
	}
	return out
}

// Columns lists every domain field column in declaration order
func (e *Entity) Columns() []string {
	return lo.Map(e.Fields, func(f Field, _ int) string { return f.Column() })
}

// EventName returns the notifier event for verb, empty when live events are off
func (e *Entity) EventName(verb string) string {
	if e.Event == "" {
		return ""
	}
	return e.Event + ":" + verb
}
