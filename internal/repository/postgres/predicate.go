package postgres

import (
	"fmt"
	"strings"

	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/lib/pq"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// sqlBuilder renders predicates into a WHERE clause with positional arguments
type sqlBuilder struct {
	entity *schema.Entity
	args   []any
}

func newSQLBuilder(e *schema.Entity) *sqlBuilder {
	return &sqlBuilder{entity: e}
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, toDriver(v))
	return fmt.Sprintf("$%d", len(b.args))
}

// column maps a field name onto its quoted column
func (b *sqlBuilder) column(field string) (string, error) {
	switch field {
	case schema.FieldID:
		return "id", nil
	case schema.FieldCreatedAt:
		return "created_at", nil
	case schema.FieldUpdatedAt:
		return "updated_at", nil
	case schema.FieldVersion:
		return "version", nil
	case schema.FieldDeletedAt:
		return "deleted_at", nil
	}
	f, ok := b.entity.Field(field)
	if !ok {
		return "", fmt.Errorf("unknown field %q on %s", field, b.entity.Name)
	}
	return pq.QuoteIdentifier(f.Column()), nil
}

func (b *sqlBuilder) render(p types.Predicate) (string, error) {
	switch pred := p.(type) {
	case nil:
		return "TRUE", nil
	case types.And:
		return b.join(pred, " AND ", "TRUE")
	case types.Or:
		return b.join(pred, " OR ", "FALSE")
	case types.Eq:
		col, err := b.column(pred.Field)
		if err != nil {
			return "", err
		}
		if pred.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + b.arg(pred.Value), nil
	case types.In:
		col, err := b.column(pred.Field)
		if err != nil {
			return "", err
		}
		if len(pred.Values) == 0 {
			return "FALSE", nil
		}
		holders := make([]string, len(pred.Values))
		for i, v := range pred.Values {
			holders[i] = b.arg(v)
		}
		return col + " IN (" + strings.Join(holders, ", ") + ")", nil
	case types.Contains:
		col, err := b.column(pred.Field)
		if err != nil {
			return "", err
		}
		return col + "::text ILIKE " + b.arg("%"+likeEscaper.Replace(pred.Value)+"%") + ` ESCAPE '\'`, nil
	case types.Range:
		col, err := b.column(pred.Field)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, 2)
		if pred.From != nil {
			parts = append(parts, col+" >= "+b.arg(pred.From))
		}
		if pred.To != nil {
			parts = append(parts, col+" <= "+b.arg(pred.To))
		}
		if len(parts) == 0 {
			return col + " IS NOT NULL", nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case types.IsNull:
		col, err := b.column(pred.Field)
		if err != nil {
			return "", err
		}
		return col + " IS NULL", nil
	case types.CompareFields:
		left, err := b.column(pred.Left)
		if err != nil {
			return "", err
		}
		right, err := b.column(pred.Right)
		if err != nil {
			return "", err
		}
		switch pred.Op {
		case types.OpLT, types.OpLTE, types.OpGT, types.OpGTE, types.OpEQ:
		default:
			return "", fmt.Errorf("unsupported comparison %q", pred.Op)
		}
		return left + " " + string(pred.Op) + " " + right, nil
	}
	return "", fmt.Errorf("unsupported predicate %T", p)
}

func (b *sqlBuilder) join(children []types.Predicate, sep, empty string) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		s, err := b.render(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}
