package ledger

import (
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
)

// Balance is the materialized credit balance of an account. It is a cache
// over the append-only transaction log: every mutation writes a transaction
// row and advances Version in the same database transaction.
type Balance struct {
	AccountID          string          `db:"account_id" json:"account_id"`
	MonthlyRemaining   decimal.Decimal `db:"monthly_remaining" json:"monthly_remaining"`
	PurchasedRemaining decimal.Decimal `db:"purchased_remaining" json:"purchased_remaining"`
	// MonthlyAllotment is the catalog allotment applied at the last renewal
	MonthlyAllotment decimal.Decimal `db:"monthly_allotment" json:"monthly_allotment"`
	// CycleKey is the billing cycle of the last applied renewal
	CycleKey types.CycleKey `db:"cycle_key" json:"cycle_key"`
	// Version guards concurrent writes; every applied operation increments it
	Version int64 `db:"version" json:"version"`
	types.BaseModel
}

func (b *Balance) TableName() string {
	return "credit_balances"
}

// Total returns the credits available for spending
func (b *Balance) Total() decimal.Decimal {
	return b.MonthlyRemaining.Add(b.PurchasedRemaining)
}

func (b *Balance) Validate() error {
	if b.MonthlyRemaining.IsNegative() || b.PurchasedRemaining.IsNegative() {
		return ierr.NewError("credit balance cannot be negative").
			WithHint("Credit balances must never go negative").
			WithReportableDetails(map[string]any{
				"monthly_remaining":   b.MonthlyRemaining,
				"purchased_remaining": b.PurchasedRemaining,
			}).
			Mark(ierr.ErrValidation)
	}
	if b.MonthlyAllotment.IsNegative() {
		return ierr.NewError("monthly allotment cannot be negative").
			WithHint("Monthly allotment must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Clone returns a copy that can be mutated without aliasing the original
func (b *Balance) Clone() *Balance {
	clone := *b
	return &clone
}
