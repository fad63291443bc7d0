package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/focusdeck/creditcore/internal/domain/account"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
)

// InMemoryAccountStore is an in-memory account repository. It holds a
// reference to the ledger store so ListRenewalDue can consult balance cycle
// keys the way the postgres join does.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account
	ledger   *InMemoryLedgerStore
}

func NewInMemoryAccountStore(ledger *InMemoryLedgerStore) *InMemoryAccountStore {
	return &InMemoryAccountStore{
		accounts: make(map[string]*account.Account),
		ledger:   ledger,
	}
}

func (r *InMemoryAccountStore) Create(ctx context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[a.ID]; exists {
		return ierr.NewError("account already exists").
			WithHint("An account with this ID already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	for _, existing := range r.accounts {
		if existing.TenantID == a.TenantID && existing.ExternalID == a.ExternalID {
			return ierr.NewError("account already exists").
				WithHint("An account with this external ID already exists").
				WithReportableDetails(map[string]any{
					"external_id": a.ExternalID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	clone := *a
	r.accounts[a.ID] = &clone
	return nil
}

func (r *InMemoryAccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.accounts[id]
	if !exists || a.TenantID != types.GetTenantID(ctx) || a.Status != types.StatusPublished {
		return nil, accountNotFound(id)
	}
	clone := *a
	return &clone, nil
}

func (r *InMemoryAccountStore) GetByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.TenantID == types.GetTenantID(ctx) && a.ExternalID == externalID && a.Status == types.StatusPublished {
			clone := *a
			return &clone, nil
		}
	}
	return nil, accountNotFound(externalID)
}

func (r *InMemoryAccountStore) Update(ctx context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.accounts[a.ID]
	if !exists || existing.TenantID != types.GetTenantID(ctx) {
		return accountNotFound(a.ID)
	}

	clone := *a
	r.accounts[a.ID] = &clone
	return nil
}

func (r *InMemoryAccountStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*account.Account, 0)
	for _, a := range r.accounts {
		if a.Status != types.StatusPublished {
			continue
		}
		if !a.Tier.IsPaid() || a.TierExpiresAt == nil || a.TierExpiresAt.After(now) {
			continue
		}
		clone := *a
		matched = append(matched, &clone)
	}
	sortAccounts(matched)
	return capAccounts(matched, limit), nil
}

func (r *InMemoryAccountStore) ListRenewalDue(ctx context.Context, cycle types.CycleKey, limit int) ([]*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	balances := r.ledger.Balances()

	matched := make([]*account.Account, 0)
	for _, a := range r.accounts {
		if a.Status != types.StatusPublished {
			continue
		}
		b, ok := balances[a.ID]
		if !ok || b.CycleKey == cycle {
			continue
		}
		clone := *a
		matched = append(matched, &clone)
	}
	sortAccounts(matched)
	return capAccounts(matched, limit), nil
}

func (r *InMemoryAccountStore) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = make(map[string]*account.Account)
}

func accountNotFound(id string) error {
	return ierr.NewError("account not found").
		WithHint("Account not found").
		WithReportableDetails(map[string]any{
			"account_id": id,
		}).
		Mark(ierr.ErrNotFound)
}

func sortAccounts(accounts []*account.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
}

func capAccounts(accounts []*account.Account, limit int) []*account.Account {
	if limit > 0 && limit < len(accounts) {
		return accounts[:limit]
	}
	return accounts
}
