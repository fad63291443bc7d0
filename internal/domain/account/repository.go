package account

import (
	"context"
	"time"

	"github.com/focusdeck/creditcore/internal/types"
)

// Repository defines the interface for account persistence operations
type Repository interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*Account, error)
	Update(ctx context.Context, a *Account) error

	// Sweeper operations. These scan across tenants and are only called by
	// the lifecycle sweeper.

	// ListExpired returns paid accounts whose tier expiry is at or before now
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Account, error)
	// ListRenewalDue returns accounts whose balance has not yet been renewed
	// for the given billing cycle
	ListRenewalDue(ctx context.Context, cycle types.CycleKey, limit int) ([]*Account, error)
}
