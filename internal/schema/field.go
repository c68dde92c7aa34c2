package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// FieldType is the storage and wire type of a field
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeText      FieldType = "text"
	TypeInt       FieldType = "int"
	TypeDecimal   FieldType = "decimal"
	TypeBool      FieldType = "bool"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
	// TypeRef holds the id of another record. References are weak, they are
	// never enforced by the store and may point at missing rows.
	TypeRef FieldType = "ref"
)

// Base fields present on every record
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldDeletedAt = "deletedAt"
	FieldVersion   = "version"
	FieldStatus    = "status"
)

// Decimal columns are NUMERIC(DecimalPrecision, DecimalScale) unless a field says otherwise
const (
	DecimalPrecision = 18
	DecimalScale     = 2
)

// Field declares one domain attribute of an entity
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	// MaxLen bounds string length in characters
	MaxLen int
	Min    *float64
	Max    *float64
	Enum   []string
	// Precision and Scale bound decimal fields, zero means the package defaults
	Precision int
	Scale     int
	// Default is applied on create when the payload leaves the field out
	Default any
	// DefaultNow stamps the current time on create
	DefaultNow bool
	Unique     bool
	// ReadOnly fields are derived or written by workflow transitions only
	ReadOnly bool
	// column overrides the derived snake_case column name
	column string
}

// Column returns the storage column name
func (f *Field) Column() string {
	if f.column != "" {
		return f.column
	}
	return lo.SnakeCase(f.Name)
}

// Coerce converts a decoded JSON value into the canonical Go type of the field:
// string, int64, decimal.Decimal, bool, types.Date or time.Time.
// It returns a user facing message when the value does not satisfy the field.
func (f *Field) Coerce(v any) (any, string) {
	if v == nil {
		return nil, ""
	}

	switch f.Type {
	case TypeString, TypeText, TypeRef:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a string"
		}
		return f.checkString(s)
	case TypeInt:
		n, ok := toInt(v)
		if !ok {
			return nil, "must be an integer"
		}
		if msg := f.checkBounds(decimal.NewFromInt(n)); msg != "" {
			return nil, msg
		}
		return n, ""
	case TypeDecimal:
		d, ok := toDecimal(v)
		if !ok {
			return nil, "must be a number"
		}
		if msg := f.checkDigits(d); msg != "" {
			return nil, msg
		}
		if msg := f.checkBounds(d); msg != "" {
			return nil, msg
		}
		return d, ""
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, ""
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, "must be a boolean"
			}
			return parsed, ""
		}
		return nil, "must be a boolean"
	case TypeDate:
		switch t := v.(type) {
		case types.Date:
			return t, ""
		case time.Time:
			return types.NewDate(t), ""
		case string:
			d, err := types.ParseDate(t)
			if err != nil {
				return nil, "must be a valid date (YYYY-MM-DD)"
			}
			return d, ""
		}
		return nil, "must be a valid date (YYYY-MM-DD)"
	case TypeTimestamp:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), ""
		case types.Date:
			return t.Time, ""
		case string:
			parsed, err := types.ParseTime(t)
			if err != nil {
				return nil, "must be a valid date"
			}
			return parsed, ""
		}
		return nil, "must be a valid date"
	}

	return nil, fmt.Sprintf("unsupported field type %s", f.Type)
}

// ParseParam converts a raw query string value into the canonical field type
func (f *Field) ParseParam(raw string) (any, string) {
	raw = strings.TrimSpace(raw)
	switch f.Type {
	case TypeString, TypeText, TypeRef:
		if f.Type == TypeRef && !types.IsValidUUID(raw) {
			return nil, "must be a valid id"
		}
		if len(f.Enum) > 0 && !lo.Contains(f.Enum, raw) {
			return nil, fmt.Sprintf("must be one of [%s]", strings.Join(f.Enum, ", "))
		}
		return raw, ""
	default:
		return f.Coerce(raw)
	}
}

func (f *Field) checkString(s string) (any, string) {
	if f.Required && strings.TrimSpace(s) == "" {
		return nil, "is required"
	}
	if f.MaxLen > 0 && utf8.RuneCountInString(s) > f.MaxLen {
		return nil, fmt.Sprintf("must be at most %d characters", f.MaxLen)
	}
	if len(f.Enum) > 0 && !lo.Contains(f.Enum, s) {
		return nil, fmt.Sprintf("must be one of [%s]", strings.Join(f.Enum, ", "))
	}
	if f.Type == TypeRef && !types.IsValidUUID(s) {
		return nil, "must be a valid id"
	}
	return s, ""
}

func (f *Field) checkBounds(d decimal.Decimal) string {
	if f.Min != nil && d.LessThan(decimal.NewFromFloat(*f.Min)) {
		return fmt.Sprintf("must be greater than or equal to %s", strconv.FormatFloat(*f.Min, 'f', -1, 64))
	}
	if f.Max != nil && d.GreaterThan(decimal.NewFromFloat(*f.Max)) {
		return fmt.Sprintf("must be less than or equal to %s", strconv.FormatFloat(*f.Max, 'f', -1, 64))
	}
	return ""
}

// Digits returns the precision and scale of a decimal field
func (f *Field) Digits() (precision, scale int) {
	precision, scale = f.Precision, f.Scale
	if precision <= 0 {
		precision = DecimalPrecision
	}
	if scale <= 0 {
		scale = DecimalScale
	}
	return precision, scale
}

// checkDigits rejects values the NUMERIC column would round or overflow
func (f *Field) checkDigits(d decimal.Decimal) string {
	precision, scale := f.Digits()
	if !d.Equal(d.Truncate(int32(scale))) {
		return fmt.Sprintf("must have at most %d decimal places", scale)
	}
	if d.Abs().GreaterThanOrEqual(decimal.New(1, int32(precision-scale))) {
		return fmt.Sprintf("must have at most %d digits before the decimal point", precision-scale)
	}
	return ""
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	case decimal.Decimal:
		if !n.IsInteger() {
			return 0, false
		}
		return n.IntPart(), true
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	}
	return decimal.Zero, false
}
