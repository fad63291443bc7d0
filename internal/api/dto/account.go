package dto

import (
	"context"
	"time"

	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/focusdeck/creditcore/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest represents the request to register an account with
// the credit core
type CreateAccountRequest struct {
	ExternalID    string     `json:"external_id" validate:"required"`
	Name          string     `json:"name"`
	Tier          types.Tier `json:"tier" validate:"required"`
	TierExpiresAt *time.Time `json:"tier_expires_at,omitempty"`
}

func (r *CreateAccountRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Tier.Validate()
}

// ToAccount converts a create account request to an account
func (r *CreateAccountRequest) ToAccount(ctx context.Context) *account.Account {
	return &account.Account{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		ExternalID:    r.ExternalID,
		Name:          r.Name,
		Tier:          r.Tier,
		TierExpiresAt: r.TierExpiresAt,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             string               `json:"id"`
	ExternalID     string               `json:"external_id"`
	Name           string               `json:"name,omitempty"`
	Tier           types.Tier           `json:"tier"`
	TierExpiresAt  *time.Time           `json:"tier_expires_at,omitempty"`
	LifecycleState types.LifecycleState `json:"lifecycle_state"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func FromAccount(a *account.Account, now time.Time) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		ExternalID:     a.ExternalID,
		Name:           a.Name,
		Tier:           a.Tier,
		TierExpiresAt:  a.TierExpiresAt,
		LifecycleState: a.LifecycleState(now),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// BalanceResponse represents a credit balance in API responses
type BalanceResponse struct {
	AccountID          string          `json:"account_id"`
	MonthlyRemaining   decimal.Decimal `json:"monthly_remaining"`
	PurchasedRemaining decimal.Decimal `json:"purchased_remaining"`
	MonthlyAllotment   decimal.Decimal `json:"monthly_allotment"`
	TotalAvailable     decimal.Decimal `json:"total_available"`
	CycleKey           types.CycleKey  `json:"cycle_key"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func FromBalance(b *ledger.Balance) *BalanceResponse {
	return &BalanceResponse{
		AccountID:          b.AccountID,
		MonthlyRemaining:   b.MonthlyRemaining,
		PurchasedRemaining: b.PurchasedRemaining,
		MonthlyAllotment:   b.MonthlyAllotment,
		TotalAvailable:     b.Total(),
		CycleKey:           b.CycleKey,
		UpdatedAt:          b.UpdatedAt,
	}
}
