package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/postgres"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type recordRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	entity *schema.Entity
	table  string
	// columns lists every selected column, base columns first
	columns []string
}

// NewRecordRepository returns the sqlx backed store of one entity
func NewRecordRepository(db *postgres.DB, logger *logger.Logger, e *schema.Entity) record.Repository {
	columns := []string{"id", "created_at", "updated_at", "version"}
	if e.SoftDeletes() {
		columns = append(columns, "deleted_at")
	}
	for _, c := range e.Columns() {
		columns = append(columns, pq.QuoteIdentifier(c))
	}
	return &recordRepository{
		db:      db,
		logger:  logger,
		entity:  e,
		table:   pq.QuoteIdentifier(e.Table),
		columns: columns,
	}
}

type recordProvider struct {
	db     *postgres.DB
	logger *logger.Logger

	mu    sync.Mutex
	repos map[string]record.Repository
}

// NewRecordProvider builds repositories lazily, one per entity
func NewRecordProvider(db *postgres.DB, logger *logger.Logger) record.Provider {
	return &recordProvider{db: db, logger: logger, repos: make(map[string]record.Repository)}
}

func (p *recordProvider) For(e *schema.Entity) record.Repository {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.repos[e.Name]; ok {
		return r
	}
	r := NewRecordRepository(p.db, p.logger, e)
	p.repos[e.Name] = r
	return r
}

func (r *recordRepository) Entity() *schema.Entity {
	return r.entity
}

func (r *recordRepository) Create(ctx context.Context, rec *record.Record) error {
	args := []any{rec.ID, rec.CreatedAt, rec.UpdatedAt, rec.Version}
	if r.entity.SoftDeletes() {
		args = append(args, rec.DeletedAt)
	}
	for _, f := range r.entity.Fields {
		args = append(args, toDriver(rec.Values[f.Name]))
	}

	holders := make([]string, len(args))
	for i := range args {
		holders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.table, strings.Join(r.columns, ", "), strings.Join(holders, ", "))

	r.logger.Debugw("creating record", "entity", r.entity.Name, "id", rec.ID)

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...); err != nil {
		return r.wrapWriteErr(err, "create")
	}
	return nil
}

func (r *recordRepository) Get(ctx context.Context, id string) (*record.Record, error) {
	if !types.IsValidUUID(id) {
		return nil, r.notFound(id)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(r.columns, ", "), r.table)
	rows, err := r.db.GetQuerier(ctx).QueryxContext(ctx, query, id)
	if err != nil {
		return nil, r.wrapReadErr(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, r.wrapReadErr(err)
		}
		return nil, r.notFound(id)
	}
	return r.scan(rows)
}

func (r *recordRepository) List(ctx context.Context, f *record.Filter) ([]*record.Record, error) {
	query, args, err := r.selectQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.GetQuerier(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, r.wrapReadErr(err)
	}
	defer rows.Close()

	out := make([]*record.Record, 0)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrapReadErr(err)
	}
	return out, nil
}

// selectQuery renders the paged SELECT of f, ties on the sort column break on id
func (r *recordRepository) selectQuery(f *record.Filter) (string, []any, error) {
	if f == nil {
		f = &record.Filter{}
	}
	b := newSQLBuilder(r.entity)
	where, err := r.where(b, f)
	if err != nil {
		return "", nil, err
	}

	sort := f.Sort
	if sort == "" {
		sort = r.entity.DefaultSort
	}
	sortCol, err := b.column(sort)
	if err != nil {
		return "", nil, ierr.WithError(err).WithHint("Invalid sort field").Mark(ierr.ErrValidation)
	}
	dir := "DESC"
	if f.Order == types.OrderAsc {
		dir = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s %s, id %s",
		strings.Join(r.columns, ", "), r.table, where, sortCol, dir, dir)
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", b.arg(f.Limit), b.arg(max(f.Offset, 0)))
	}
	return query, b.args, nil
}

func (r *recordRepository) Count(ctx context.Context, f *record.Filter) (int, error) {
	b := newSQLBuilder(r.entity)
	where, err := r.where(b, f)
	if err != nil {
		return 0, err
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.table, where)
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, b.args...); err != nil {
		return 0, r.wrapReadErr(err)
	}
	return count, nil
}

func (r *recordRepository) Update(ctx context.Context, rec *record.Record) error {
	now := rec.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sets := []string{"updated_at = $1", "version = version + 1"}
	args := []any{now}
	if r.entity.SoftDeletes() {
		args = append(args, rec.DeletedAt)
		sets = append(sets, fmt.Sprintf("deleted_at = $%d", len(args)))
	}
	for _, f := range r.entity.Fields {
		args = append(args, toDriver(rec.Values[f.Name]))
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f.Column()), len(args)))
	}
	args = append(args, rec.ID, rec.Version)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d AND version = $%d",
		r.table, strings.Join(sets, ", "), len(args)-1, len(args))

	r.logger.Debugw("updating record", "entity", r.entity.Name, "id", rec.ID, "version", rec.Version)

	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.wrapWriteErr(err, "update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return r.wrapWriteErr(err, "update")
	}
	if affected == 0 {
		if _, err := r.Get(ctx, rec.ID); err != nil {
			return err
		}
		return ierr.NewErrorf("%s %s was modified concurrently", r.entity.Name, rec.ID).
			WithHint("The record was changed by someone else, reload it and try again").
			WithReportableDetails(map[string]any{"id": rec.ID, "version": rec.Version}).
			Mark(ierr.ErrVersionConflict)
	}

	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table)
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return r.wrapWriteErr(err, "delete")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return r.notFound(id)
	}
	return nil
}

func (r *recordRepository) CountBy(ctx context.Context, field string, f *record.Filter) (map[string]int, error) {
	b := newSQLBuilder(r.entity)
	col, err := b.column(field)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	where, err := r.where(b, f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s::text AS key, COUNT(*) AS count FROM %s WHERE %s GROUP BY 1", col, r.table, where)
	rows, err := r.db.GetQuerier(ctx).QueryxContext(ctx, query, b.args...)
	if err != nil {
		return nil, r.wrapReadErr(err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key *string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, r.wrapReadErr(err)
		}
		out[lo.FromPtr(key)] += count
	}
	return out, r.wrapReadErr(rows.Err())
}

func (r *recordRepository) Sum(ctx context.Context, field string, f *record.Filter) (decimal.Decimal, error) {
	b := newSQLBuilder(r.entity)
	col, err := b.column(field)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	where, err := r.where(b, f)
	if err != nil {
		return decimal.Zero, err
	}

	var raw any
	query := fmt.Sprintf("SELECT COALESCE(SUM(%s), 0) FROM %s WHERE %s", col, r.table, where)
	if err := r.db.GetQuerier(ctx).QueryRowxContext(ctx, query, b.args...).Scan(&raw); err != nil {
		return decimal.Zero, r.wrapReadErr(err)
	}
	return decodeDecimal(raw)
}

func (r *recordRepository) SumBy(ctx context.Context, groupField, sumField string, f *record.Filter) (map[string]decimal.Decimal, error) {
	b := newSQLBuilder(r.entity)
	groupCol, err := b.column(groupField)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	sumCol, err := b.column(sumField)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	where, err := r.where(b, f)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s::text AS key, COALESCE(SUM(%s), 0) AS total FROM %s WHERE %s GROUP BY 1",
		groupCol, sumCol, r.table, where)
	rows, err := r.db.GetQuerier(ctx).QueryxContext(ctx, query, b.args...)
	if err != nil {
		return nil, r.wrapReadErr(err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var key *string
		var raw any
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, r.wrapReadErr(err)
		}
		total, err := decodeDecimal(raw)
		if err != nil {
			return nil, r.wrapReadErr(err)
		}
		k := lo.FromPtr(key)
		out[k] = out[k].Add(total)
	}
	return out, r.wrapReadErr(rows.Err())
}

// where renders the filter predicate plus the soft delete guard
func (r *recordRepository) where(b *sqlBuilder, f *record.Filter) (string, error) {
	if f == nil {
		f = &record.Filter{}
	}
	pred := f.Predicate
	if r.entity.SoftDeletes() && !f.IncludeDeleted {
		pred = types.AndOf(pred, types.IsNull{Field: schema.FieldDeletedAt})
	}
	where, err := b.render(pred)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Invalid filter").
			Mark(ierr.ErrValidation)
	}
	return where, nil
}

func (r *recordRepository) scan(rows *sqlx.Rows) (*record.Record, error) {
	raw := make(map[string]any, len(r.columns))
	if err := rows.MapScan(raw); err != nil {
		return nil, r.wrapReadErr(err)
	}

	rec := &record.Record{
		ID:     decodeString(raw["id"]),
		Values: make(map[string]any, len(r.entity.Fields)),
	}
	rec.CreatedAt, _ = raw["created_at"].(time.Time)
	rec.UpdatedAt, _ = raw["updated_at"].(time.Time)
	rec.CreatedAt, rec.UpdatedAt = rec.CreatedAt.UTC(), rec.UpdatedAt.UTC()
	rec.Version, _ = raw["version"].(int64)
	if at, ok := raw["deleted_at"].(time.Time); ok {
		at = at.UTC()
		rec.DeletedAt = &at
	}

	for i := range r.entity.Fields {
		f := &r.entity.Fields[i]
		v, err := decode(f, raw[f.Column()])
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Stored record could not be read").
				Mark(ierr.ErrDatabase)
		}
		rec.Values[f.Name] = v
	}
	return rec, nil
}

func (r *recordRepository) notFound(id string) error {
	return ierr.NewErrorf("%s %s not found", r.entity.Name, id).
		WithHintf("%s not found", r.entity.Module).
		WithReportableDetails(map[string]any{"id": id}).
		Mark(ierr.ErrNotFound)
}

func (r *recordRepository) wrapReadErr(err error) error {
	if err == nil {
		return nil
	}
	return ierr.WithError(err).
		WithMessage(fmt.Sprintf("reading %s", r.entity.Table)).
		WithHint("Failed to read records").
		Mark(ierr.ErrDatabase)
}

func (r *recordRepository) wrapWriteErr(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ierr.WithError(err).
			WithHintf("%s already exists", r.entity.Module).
			WithReportableDetails(map[string]any{"constraint": pqErr.Constraint}).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithMessage(fmt.Sprintf("%s %s", op, r.entity.Table)).
		WithHintf("Failed to %s %s", op, r.entity.Module).
		Mark(ierr.ErrDatabase)
}
