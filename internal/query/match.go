package query

import (
	"strings"
	"time"

	"github.com/kewsys/registry/internal/domain/record"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
)

// Match evaluates p against r with the same semantics the postgres renderer gives it
func Match(p types.Predicate, r *record.Record) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case types.And:
		for _, child := range pred {
			if !Match(child, r) {
				return false
			}
		}
		return true
	case types.Or:
		for _, child := range pred {
			if Match(child, r) {
				return true
			}
		}
		return false
	case types.Eq:
		v, _ := r.Get(pred.Field)
		c, ok := Compare(v, pred.Value)
		return ok && c == 0
	case types.In:
		v, _ := r.Get(pred.Field)
		for _, want := range pred.Values {
			if c, ok := Compare(v, want); ok && c == 0 {
				return true
			}
		}
		return false
	case types.Contains:
		v, _ := r.Get(pred.Field)
		s, ok := v.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(pred.Value))
	case types.Range:
		v, _ := r.Get(pred.Field)
		if v == nil {
			return false
		}
		if pred.From != nil {
			if c, ok := Compare(v, pred.From); !ok || c < 0 {
				return false
			}
		}
		if pred.To != nil {
			if c, ok := Compare(v, pred.To); !ok || c > 0 {
				return false
			}
		}
		return true
	case types.IsNull:
		v, _ := r.Get(pred.Field)
		return v == nil
	case types.CompareFields:
		left, _ := r.Get(pred.Left)
		right, _ := r.Get(pred.Right)
		c, ok := Compare(left, right)
		if !ok {
			return false
		}
		switch pred.Op {
		case types.OpLT:
			return c < 0
		case types.OpLTE:
			return c <= 0
		case types.OpGT:
			return c > 0
		case types.OpGTE:
			return c >= 0
		case types.OpEQ:
			return c == 0
		}
	}
	return false
}

// Compare orders two canonical field values. ok is false when either side is
// nil or the types cannot be compared.
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	if da, ok := asDecimal(a); ok {
		if db, ok := asDecimal(b); ok {
			return da.Cmp(db), true
		}
		return 0, false
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb), true
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// Less orders records by field for the given direction. Nulls sort as the
// largest value and ties fall back to the id.
func Less(a, b *record.Record, field, order string) bool {
	va, _ := a.Get(field)
	vb, _ := b.Get(field)

	var c int
	switch {
	case va == nil && vb == nil:
		c = 0
	case va == nil:
		c = 1
	case vb == nil:
		c = -1
	default:
		c, _ = Compare(va, vb)
	}
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if order == types.OrderAsc {
		return c < 0
	}
	return c > 0
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int64:
		return decimal.NewFromInt(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case float64:
		return decimal.NewFromFloat(n), true
	}
	return decimal.Zero, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case types.Date:
		return t.Time, true
	}
	return time.Time{}, false
}
