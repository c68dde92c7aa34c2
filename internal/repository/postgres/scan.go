package postgres

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
)

// toDriver converts a canonical field value into something lib/pq can bind
func toDriver(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case driver.Valuer:
		return t
	case int:
		return int64(t)
	}
	return v
}

// decode converts a scanned column back into the canonical type of f
func decode(f *schema.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Type {
	case schema.TypeString, schema.TypeText, schema.TypeRef:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case schema.TypeInt:
		switch v := raw.(type) {
		case int64:
			return v, nil
		case []byte:
			return strconv.ParseInt(string(v), 10, 64)
		}
	case schema.TypeDecimal:
		switch v := raw.(type) {
		case []byte:
			return decimal.NewFromString(string(v))
		case string:
			return decimal.NewFromString(v)
		case float64:
			return decimal.NewFromFloat(v), nil
		case int64:
			return decimal.NewFromInt(v), nil
		}
	case schema.TypeBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case schema.TypeDate:
		if v, ok := raw.(time.Time); ok {
			return types.NewDate(v), nil
		}
	case schema.TypeTimestamp:
		if v, ok := raw.(time.Time); ok {
			return v.UTC(), nil
		}
	}
	return nil, fmt.Errorf("cannot decode %T into %s field %s", raw, f.Type, f.Name)
}

func decodeString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	}
	return fmt.Sprint(raw)
}

func decodeDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, nil
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return decimal.Zero, fmt.Errorf("cannot decode %T as decimal", raw)
}
