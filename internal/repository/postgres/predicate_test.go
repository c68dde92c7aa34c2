package postgres

import (
	"strings"
	"testing"

	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entity(t *testing.T, name string) *schema.Entity {
	t.Helper()
	e, ok := schema.NewDefaultRegistry().Get(name)
	require.True(t, ok, "entity %s is not registered", name)
	return e
}

func TestRender(t *testing.T) {
	assets := entity(t, schema.EntityAssets)
	from, err := types.ParseDate("2025-01-01")
	require.NoError(t, err)
	price := decimal.RequireFromString("10.50")

	tests := []struct {
		name string
		pred types.Predicate
		sql  string
		args []any
	}{
		{
			name: "nil matches everything",
			pred: nil,
			sql:  "TRUE",
		},
		{
			name: "contains escapes like wildcards",
			pred: types.Contains{Field: "assetName", Value: `50%_x\`},
			sql:  `"asset_name"::text ILIKE $1 ESCAPE '\'`,
			args: []any{`%50\%\_x\\%`},
		},
		{
			name: "and numbers arguments in order",
			pred: types.And{
				types.Contains{Field: "location", Value: "hq"},
				types.Eq{Field: "status", Value: "Active"},
			},
			sql:  `("location"::text ILIKE $1 ESCAPE '\' AND "status" = $2)`,
			args: []any{"%hq%", "Active"},
		},
		{
			name: "or",
			pred: types.Or{
				types.Eq{Field: "category", Value: "Vehicle"},
				types.Eq{Field: "category", Value: "Furniture"},
			},
			sql:  `("category" = $1 OR "category" = $2)`,
			args: []any{"Vehicle", "Furniture"},
		},
		{
			name: "empty and",
			pred: types.And{},
			sql:  "TRUE",
		},
		{
			name: "empty or",
			pred: types.Or{},
			sql:  "FALSE",
		},
		{
			name: "eq nil is null",
			pred: types.Eq{Field: "custodian", Value: nil},
			sql:  `"custodian" IS NULL`,
		},
		{
			name: "in",
			pred: types.In{Field: "status", Values: []any{"Active", "Lost"}},
			sql:  `"status" IN ($1, $2)`,
			args: []any{"Active", "Lost"},
		},
		{
			name: "empty in matches nothing",
			pred: types.In{Field: "status"},
			sql:  "FALSE",
		},
		{
			name: "closed range",
			pred: types.Range{Field: "purchasePrice", From: price, To: price},
			sql:  `("purchase_price" >= $1 AND "purchase_price" <= $2)`,
			args: []any{price, price},
		},
		{
			name: "half open range",
			pred: types.Range{Field: "purchaseDate", From: from},
			sql:  `("purchase_date" >= $1)`,
			args: []any{from},
		},
		{
			name: "unbounded range",
			pred: types.Range{Field: "purchaseDate"},
			sql:  `"purchase_date" IS NOT NULL`,
		},
		{
			name: "is null on a base column",
			pred: types.IsNull{Field: schema.FieldDeletedAt},
			sql:  "deleted_at IS NULL",
		},
		{
			name: "base columns are not quoted",
			pred: types.Eq{Field: schema.FieldID, Value: "x"},
			sql:  "id = $1",
			args: []any{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newSQLBuilder(assets)
			sql, err := b.render(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			if tt.args == nil {
				assert.Empty(t, b.args)
			} else {
				assert.Equal(t, tt.args, b.args)
			}
		})
	}
}

func TestRenderCompareFields(t *testing.T) {
	inventory := entity(t, schema.EntityInventory)

	sql, err := newSQLBuilder(inventory).render(schema.LowStock)
	require.NoError(t, err)
	assert.Equal(t, `"current_stock" <= "minimum_stock"`, sql)

	_, err = newSQLBuilder(inventory).render(types.CompareFields{Left: "currentStock", Op: "; DROP", Right: "minimumStock"})
	assert.Error(t, err)
}

func TestRenderUnknownField(t *testing.T) {
	_, err := newSQLBuilder(entity(t, schema.EntityAssets)).render(types.Eq{Field: "colour", Value: "red"})
	assert.Error(t, err)
}

func TestWhere(t *testing.T) {
	log := logger.NewNopLogger()

	t.Run("soft delete entities hide deleted rows", func(t *testing.T) {
		repo := NewRecordRepository(nil, log, entity(t, schema.EntityAssets)).(*recordRepository)
		b := newSQLBuilder(repo.entity)
		where, err := repo.where(b, &record.Filter{Predicate: types.Eq{Field: "status", Value: "Active"}})
		require.NoError(t, err)
		assert.Equal(t, `("status" = $1 AND deleted_at IS NULL)`, where)
	})

	t.Run("include deleted drops the guard", func(t *testing.T) {
		repo := NewRecordRepository(nil, log, entity(t, schema.EntityAssets)).(*recordRepository)
		where, err := repo.where(newSQLBuilder(repo.entity), &record.Filter{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Equal(t, "TRUE", where)
	})

	t.Run("hard delete entities have no guard", func(t *testing.T) {
		repo := NewRecordRepository(nil, log, entity(t, schema.EntityLivestockCareRecords)).(*recordRepository)
		where, err := repo.where(newSQLBuilder(repo.entity), nil)
		require.NoError(t, err)
		assert.Equal(t, "TRUE", where)
	})

	t.Run("bad predicate is a validation error", func(t *testing.T) {
		repo := NewRecordRepository(nil, log, entity(t, schema.EntityAssets)).(*recordRepository)
		_, err := repo.where(newSQLBuilder(repo.entity), &record.Filter{Predicate: types.IsNull{Field: "colour"}})
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestSelectQuery(t *testing.T) {
	repo := NewRecordRepository(nil, logger.NewNopLogger(), entity(t, schema.EntityAssets)).(*recordRepository)

	t.Run("paging arguments follow the filter arguments", func(t *testing.T) {
		query, args, err := repo.selectQuery(&record.Filter{
			Predicate: types.AndOf(
				types.Eq{Field: "category", Value: "Vehicle"},
				types.Contains{Field: "location", Value: "hq"},
			),
			Sort:   "purchasePrice",
			Order:  types.OrderAsc,
			Limit:  20,
			Offset: 40,
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(query, "SELECT id, created_at, updated_at, version, deleted_at, "), query)
		assert.True(t, strings.HasSuffix(query,
			`FROM "assets" WHERE ("category" = $1 AND "location"::text ILIKE $2 ESCAPE '\' AND deleted_at IS NULL) `+
				`ORDER BY "purchase_price" ASC, id ASC LIMIT $3 OFFSET $4`), query)
		assert.Equal(t, []any{"Vehicle", "%hq%", int64(20), int64(40)}, args)
	})

	t.Run("defaults to the entity sort, newest first, unpaged", func(t *testing.T) {
		query, args, err := repo.selectQuery(nil)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(query, "WHERE (deleted_at IS NULL) ORDER BY created_at DESC, id DESC"), query)
		assert.Empty(t, args)
	})

	t.Run("negative offset is read from the start", func(t *testing.T) {
		_, args, err := repo.selectQuery(&record.Filter{Limit: 20, Offset: -20})
		require.NoError(t, err)
		assert.Equal(t, []any{int64(20), int64(0)}, args)
	})

	t.Run("unknown sort is a validation error", func(t *testing.T) {
		_, _, err := repo.selectQuery(&record.Filter{Sort: "colour"})
		assert.True(t, ierr.IsValidation(err))
	})
}
