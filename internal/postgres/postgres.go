package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	sentryService "github.com/kewsys/registry/internal/sentry"
	_ "github.com/lib/pq"
)

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	logger *logger.Logger
	sentry *sentryService.Service
}

// IClient is the transaction boundary services depend on
type IClient interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ IClient = (*DB)(nil)

// Querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// NewDB connects to postgres, retrying with exponential backoff until
// postgres.connect_timeout elapses
func NewDB(cfg *config.Configuration, log *logger.Logger, sentry *sentryService.Service) (*DB, error) {
	dsn := cfg.Postgres.GetDSN()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = cfg.Postgres.ConnectTimeout

	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = sqlx.Connect("postgres", dsn)
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warnw("postgres not reachable, retrying",
			"host", cfg.Postgres.Host,
			"error", err,
			"retry_in", wait.String(),
		)
	}
	if err := backoff.RetryNotify(connect, b, notify); err != nil {
		return nil, err
	}

	if cfg.Postgres.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetimeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Infow("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.DBName)
	return &DB{DB: db, logger: log, sentry: sentry}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

// GetQuerier returns either the transaction from context or the base DB
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID)
	}
	return NewTracedQuerier(db.DB, db.logger, "")
}
