package types

// Predicate is a storage independent filter expression. Field names are the
// JSON names declared by the entity schema, repositories map them onto columns.
type Predicate interface {
	predicate()
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

// Or matches when at least one child matches. An empty Or matches nothing.
type Or []Predicate

// Eq is an exact match
type Eq struct {
	Field string
	Value any
}

// In matches any of Values
type In struct {
	Field  string
	Values []any
}

// Contains is a case insensitive substring match
type Contains struct {
	Field string
	Value string
}

// Range is inclusive on both ends, a nil bound leaves that side open
type Range struct {
	Field string
	From  any
	To    any
}

// IsNull matches rows where Field has no value
type IsNull struct {
	Field string
}

// CompareOp is a comparison between two fields of the same row
type CompareOp string

const (
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
	OpEQ  CompareOp = "="
)

// CompareFields compares two columns of the same row, ex currentStock <= minimumStock
type CompareFields struct {
	Left  string
	Op    CompareOp
	Right string
}

func (And) predicate()           {}
func (Or) predicate()            {}
func (Eq) predicate()            {}
func (In) predicate()            {}
func (Contains) predicate()      {}
func (Range) predicate()         {}
func (IsNull) predicate()        {}
func (CompareFields) predicate() {}

// AndOf joins the non nil predicates, flattening nested And
func AndOf(preds ...Predicate) Predicate {
	out := make(And, 0, len(preds))
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
			continue
		case And:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	return out
}
