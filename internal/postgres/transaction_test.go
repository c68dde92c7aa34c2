package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	sentryService "github.com/kewsys/registry/internal/sentry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB() *DB {
	log := logger.NewNopLogger()
	return &DB{logger: log, sentry: sentryService.NewSentryService(config.GetDefaultConfig(), log)}
}

func TestGetTx(t *testing.T) {
	_, ok := GetTx(context.Background())
	assert.False(t, ok)

	_, ok = GetTx(WithTxContext(context.Background(), nil))
	assert.False(t, ok, "a nil transaction is no transaction")

	outer := &Tx{ID: "tx-1"}
	got, ok := GetTx(WithTxContext(context.Background(), outer))
	require.True(t, ok)
	assert.Same(t, outer, got)
}

// The outer Tx wraps no connection, any begin, commit or rollback on it would panic.
func TestNestedWithTxJoinsOuter(t *testing.T) {
	db := newTestDB()
	outer := &Tx{ID: "tx-1"}
	ctx := WithTxContext(context.Background(), outer)

	t.Run("success runs in the outer transaction", func(t *testing.T) {
		calls := 0
		err := db.WithTx(ctx, func(ctx context.Context) error {
			return db.WithTx(ctx, func(ctx context.Context) error {
				calls++
				got, ok := GetTx(ctx)
				require.True(t, ok)
				assert.Same(t, outer, got)
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("errors reach the outermost caller unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTx(ctx, func(ctx context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})
}
