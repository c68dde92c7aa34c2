package testutil

import (
	"context"
	"sync/atomic"

	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient runs transactional callbacks directly
type MockPostgresClient struct {
	logger *logger.Logger
	txs    atomic.Int64
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes fn without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.txs.Add(1)
	return fn(ctx)
}

// Transactions counts the WithTx calls made so far
func (c *MockPostgresClient) Transactions() int64 {
	return c.txs.Load()
}
