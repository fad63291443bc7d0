package testutil

import (
	"context"
	"sync"

	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/postgres"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/jmoiron/sqlx"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type mockTxKey struct{}

// MockPostgresClient is a mock implementation of postgres client for testing.
// The in-memory stores guard their own state; WithTx serializes concurrent
// callers the way the row lock taken by GetBalanceForUpdate does on postgres,
// and runs the function without a real transaction.
type MockPostgresClient struct {
	logger *logger.Logger
	mu     sync.Mutex
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a transaction. Nested calls run
// inside the outer transaction, matching the real client.
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(mockTxKey{}) != nil {
		return fn(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(context.WithValue(ctx, mockTxKey{}, true))
}

// TxFromContext returns the transaction from context if it exists
func (c *MockPostgresClient) TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// Querier is never reached in tests; repositories are in-memory stores
func (c *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}
