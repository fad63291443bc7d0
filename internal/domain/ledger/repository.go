package ledger

import (
	"context"

	"github.com/focusdeck/creditcore/internal/types"
)

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	AccountID string
	Kind      *types.TransactionKind
	Limit     int
	Offset    int
}

// Repository defines the ledger store contract. Implementations must make
// ApplyIfAbsent-style mutations atomic per account: the balance read, the
// transaction insert and the version-guarded balance write happen inside one
// database transaction.
type Repository interface {
	CreateBalance(ctx context.Context, b *Balance) error
	GetBalance(ctx context.Context, accountID string) (*Balance, error)
	// GetBalanceForUpdate locks the balance row for the remainder of the
	// surrounding transaction
	GetBalanceForUpdate(ctx context.Context, accountID string) (*Balance, error)
	// UpdateBalance writes b only if the stored version still equals
	// expectedVersion; otherwise it fails with a version conflict
	UpdateBalance(ctx context.Context, b *Balance, expectedVersion int64) error

	CreateTransaction(ctx context.Context, t *Transaction) error
	GetTransactionByIdempotencyKey(ctx context.Context, accountID, key string) (*Transaction, error)
	ListTransactions(ctx context.Context, f *TransactionFilter) ([]*Transaction, error)
	CountTransactions(ctx context.Context, f *TransactionFilter) (int, error)
}
