package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	ierr "github.com/kewsys/registry/internal/errors"
	sentryService "github.com/kewsys/registry/internal/sentry"
	"github.com/kewsys/registry/internal/types"
)

type txKey struct{}

// Tx is the transaction carried by a WithTx context
type Tx struct {
	*sqlx.Tx
	// ID correlates the statements of one transaction in the query log
	ID string
}

// GetTx returns the transaction of ctx, if any
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok && tx != nil
}

// WithTxContext binds tx to ctx
func WithTxContext(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// WithTx runs fn in a read committed transaction. A call made inside fn joins
// the outer transaction, which commits or rolls back once the outermost fn returns.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if tx, ok := GetTx(ctx); ok {
		db.logger.Debugw("joining transaction", "tx_id", tx.ID)
		return fn(ctx)
	}

	span, ctx := db.sentry.StartDBSpan(ctx, "postgres.transaction", map[string]interface{}{
		"operation": "transaction",
	})
	defer func() { sentryService.FinishSpan(span, err) }()

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to start transaction").
			Mark(ierr.ErrDatabase)
	}
	tx := &Tx{Tx: sqlxTx, ID: types.GenerateUUID()}
	db.logger.Debugw("transaction started", "tx_id", tx.ID)

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(WithTxContext(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Errorw("rollback failed", "tx_id", tx.ID, "error", rbErr)
		}
		db.logger.Debugw("transaction rolled back", "tx_id", tx.ID, "error", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	db.logger.Debugw("transaction committed", "tx_id", tx.ID)
	return nil
}
