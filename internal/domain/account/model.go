package account

import (
	"time"

	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
)

// Account represents a tenant user of the productivity app. The tier and its
// expiry are mutated only by the credit transaction processor and the
// lifecycle sweeper.
type Account struct {
	ID         string     `db:"id" json:"id"`
	ExternalID string     `db:"external_id" json:"external_id"`
	Name       string     `db:"name" json:"name"`
	Tier       types.Tier `db:"tier" json:"tier"`
	// TierExpiresAt is null for free and non-expiring accounts
	TierExpiresAt *time.Time `db:"tier_expires_at" json:"tier_expires_at,omitempty"`
	types.BaseModel
}

func (a *Account) TableName() string {
	return "accounts"
}

func (a *Account) Validate() error {
	if err := a.Tier.Validate(); err != nil {
		return err
	}
	if a.Tier == types.TierFree && a.TierExpiresAt != nil {
		return ierr.NewError("free accounts cannot carry an expiry").
			WithHint("Free tier accounts must not have a tier expiry").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EffectiveTier resolves the tier as of now, treating an account whose expiry
// has passed as already free even before the sweeper has persisted the
// downgrade
func (a *Account) EffectiveTier(now time.Time) types.Tier {
	if a.Tier.IsPaid() && a.TierExpiresAt != nil && !a.TierExpiresAt.After(now) {
		return types.TierFree
	}
	return a.Tier
}

// LifecycleState derives where the account sits relative to its expiry
func (a *Account) LifecycleState(now time.Time) types.LifecycleState {
	return types.LifecycleStateFor(a.Tier, a.TierExpiresAt, now)
}
