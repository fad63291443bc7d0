package testutil

import (
	"context"
	"sync"

	"github.com/focusdeck/creditcore/internal/domain/ledger"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
)

// InMemoryLedgerStore mirrors the postgres ledger repository semantics:
// idempotency keys are unique per account and balance writes are guarded by
// the expected version.
type InMemoryLedgerStore struct {
	mu           sync.RWMutex
	balances     map[string]*ledger.Balance
	transactions []*ledger.Transaction
	// byIdempotencyKey indexes transactions by accountID + "/" + key
	byIdempotencyKey map[string]*ledger.Transaction
}

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		balances:         make(map[string]*ledger.Balance),
		transactions:     make([]*ledger.Transaction, 0),
		byIdempotencyKey: make(map[string]*ledger.Transaction),
	}
}

func idempotencyIndexKey(accountID, key string) string {
	return accountID + "/" + key
}

func (r *InMemoryLedgerStore) CreateBalance(ctx context.Context, b *ledger.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.balances[b.AccountID]; exists {
		return ierr.NewError("balance already exists").
			WithHint("A credit balance already exists for this account").
			Mark(ierr.ErrAlreadyExists)
	}

	r.balances[b.AccountID] = b.Clone()
	return nil
}

func (r *InMemoryLedgerStore) GetBalance(ctx context.Context, accountID string) (*ledger.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getBalance(ctx, accountID)
}

func (r *InMemoryLedgerStore) GetBalanceForUpdate(ctx context.Context, accountID string) (*ledger.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getBalance(ctx, accountID)
}

func (r *InMemoryLedgerStore) getBalance(ctx context.Context, accountID string) (*ledger.Balance, error) {
	b, exists := r.balances[accountID]
	if !exists || b.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("balance not found").
			WithHint("No credit balance exists for this account").
			WithReportableDetails(map[string]any{
				"account_id": accountID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return b.Clone(), nil
}

func (r *InMemoryLedgerStore) UpdateBalance(ctx context.Context, b *ledger.Balance, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.balances[b.AccountID]
	if !exists {
		return ierr.NewError("balance not found").
			WithHint("No credit balance exists for this account").
			Mark(ierr.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return ierr.NewError("balance was modified concurrently").
			WithHint("The credit balance changed while processing, please retry").
			WithReportableDetails(map[string]any{
				"account_id":       b.AccountID,
				"expected_version": expectedVersion,
				"stored_version":   stored.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	r.balances[b.AccountID] = b.Clone()
	return nil
}

func (r *InMemoryLedgerStore) CreateTransaction(ctx context.Context, t *ledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := idempotencyIndexKey(t.AccountID, t.IdempotencyKey)
	if _, exists := r.byIdempotencyKey[key]; exists {
		return ierr.NewError("transaction already recorded").
			WithHint("A transaction with this idempotency key already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	clone := *t
	r.transactions = append(r.transactions, &clone)
	r.byIdempotencyKey[key] = &clone
	return nil
}

func (r *InMemoryLedgerStore) GetTransactionByIdempotencyKey(ctx context.Context, accountID, key string) (*ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.byIdempotencyKey[idempotencyIndexKey(accountID, key)]
	if !exists {
		return nil, ierr.NewError("transaction not found").
			WithHint("No transaction exists for this idempotency key").
			Mark(ierr.ErrNotFound)
	}
	clone := *t
	return &clone, nil
}

func (r *InMemoryLedgerStore) ListTransactions(ctx context.Context, f *ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filterTransactions(f)

	// newest first, matching the postgres ordering
	result := make([]*ledger.Transaction, 0, len(matched))
	for i := len(matched) - 1; i >= 0; i-- {
		clone := *matched[i]
		result = append(result, &clone)
	}

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return []*ledger.Transaction{}, nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result, nil
}

func (r *InMemoryLedgerStore) CountTransactions(ctx context.Context, f *ledger.TransactionFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.filterTransactions(f)), nil
}

func (r *InMemoryLedgerStore) filterTransactions(f *ledger.TransactionFilter) []*ledger.Transaction {
	matched := make([]*ledger.Transaction, 0)
	for _, t := range r.transactions {
		if f.AccountID != "" && t.AccountID != f.AccountID {
			continue
		}
		if f.Kind != nil && t.Kind != *f.Kind {
			continue
		}
		matched = append(matched, t)
	}
	return matched
}

// Balances exposes the raw balance map for sweeper-style cycle scans
func (r *InMemoryLedgerStore) Balances() map[string]*ledger.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*ledger.Balance, len(r.balances))
	for id, b := range r.balances {
		out[id] = b.Clone()
	}
	return out
}

func (r *InMemoryLedgerStore) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.balances = make(map[string]*ledger.Balance)
	r.transactions = make([]*ledger.Transaction, 0)
	r.byIdempotencyKey = make(map[string]*ledger.Transaction)
}
