package postgres

import (
	"fmt"
	"strings"

	"github.com/kewsys/registry/internal/schema"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

// SchemaDDL renders idempotent CREATE statements for the users and audit
// tables plus one table per registry entity
func SchemaDDL(reg *schema.Registry) []string {
	stmts := []string{usersDDL, auditLogsDDL}
	stmts = append(stmts, auditIndexes...)
	for _, e := range reg.All() {
		stmts = append(stmts, EntityDDL(e)...)
	}
	return stmts
}

// EntityDDL renders the table and index statements of one entity
func EntityDDL(e *schema.Entity) []string {
	table := pq.QuoteIdentifier(e.Table)

	cols := []string{
		"id UUID PRIMARY KEY",
		"created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		"updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		"version BIGINT NOT NULL DEFAULT 1",
	}
	if e.SoftDeletes() {
		cols = append(cols, "deleted_at TIMESTAMPTZ")
	}
	for _, f := range e.Fields {
		def := pq.QuoteIdentifier(f.Column()) + " " + columnType(&f)
		if f.Required {
			def += " NOT NULL"
		}
		if f.Unique {
			def += " UNIQUE"
		}
		cols = append(cols, def)
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t")),
	}

	indexed := lo.Uniq(append(
		lo.FilterMap(e.Filters, func(f schema.Filter, _ int) (string, bool) {
			return f.Field, f.Kind == schema.FilterExact || f.Kind == schema.FilterRange
		}),
		e.Owner, e.DefaultSort,
	))
	for _, name := range indexed {
		col := name
		if f, ok := e.Field(name); ok {
			col = f.Column()
		} else if name == schema.FieldCreatedAt {
			col = "created_at"
		} else {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			pq.QuoteIdentifier(fmt.Sprintf("idx_%s_%s", e.Table, col)), table, pq.QuoteIdentifier(col)))
	}
	if e.SoftDeletes() {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (deleted_at)",
			pq.QuoteIdentifier("idx_"+e.Table+"_deleted_at"), table))
	}
	return stmts
}

func columnType(f *schema.Field) string {
	switch f.Type {
	case schema.TypeString:
		if f.MaxLen > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.MaxLen)
		}
		return "VARCHAR(255)"
	case schema.TypeText:
		return "TEXT"
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeDecimal:
		precision, scale := f.Digits()
		return fmt.Sprintf("NUMERIC(%d, %d)", precision, scale)
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeTimestamp:
		return "TIMESTAMPTZ"
	case schema.TypeRef:
		return "UUID"
	}
	return "TEXT"
}

const usersDDL = `CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	email VARCHAR(255) NOT NULL UNIQUE,
	password VARCHAR(255) NOT NULL,
	full_name VARCHAR(150) NOT NULL DEFAULT '',
	role VARCHAR(20) NOT NULL DEFAULT 'staff',
	department VARCHAR(150) NOT NULL DEFAULT '',
	position VARCHAR(150) NOT NULL DEFAULT '',
	phone_number VARCHAR(50) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	last_login TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const auditLogsDDL = `CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY,
	user_id UUID,
	username VARCHAR(50) NOT NULL DEFAULT '',
	action VARCHAR(50) NOT NULL,
	module VARCHAR(100) NOT NULL,
	record_id VARCHAR(100) NOT NULL DEFAULT '',
	record_type VARCHAR(100) NOT NULL DEFAULT '',
	old_value JSONB,
	new_value JSONB,
	ip_address VARCHAR(64) NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'success',
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var auditIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs (user_id)",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action)",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_module ON audit_logs (module)",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at)",
}
