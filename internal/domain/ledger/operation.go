package ledger

import (
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
)

// Operation is the validated command to apply a single ledger mutation.
// Handlers and the sweeper build one of these per external trigger; arbitrary
// partial-update payloads are never forwarded to the store.
type Operation struct {
	AccountID string                `json:"account_id"`
	Kind      types.TransactionKind `json:"kind"`
	// Amount is the positive number of credits to debit or credit. Unused
	// for renewals and clawbacks.
	Amount decimal.Decimal `json:"amount"`
	// NewAllotment is the catalog allotment to reset to. Renewals only.
	NewAllotment decimal.Decimal `json:"new_allotment"`
	// Cycle is the billing cycle a renewal applies to. Renewals only.
	Cycle          types.CycleKey `json:"cycle,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	Description    string         `json:"description,omitempty"`
	Metadata       types.Metadata `json:"metadata,omitempty"`
}

func (op *Operation) Validate() error {
	if err := op.Kind.Validate(); err != nil {
		return err
	}

	if op.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Account id is required").
			Mark(ierr.ErrValidation)
	}

	if op.IdempotencyKey == "" {
		return ierr.NewError("idempotency_key is required").
			WithHint("Idempotency key is required").
			Mark(ierr.ErrValidation)
	}

	switch op.Kind {
	case types.TransactionKindDebitUsage, types.TransactionKindCreditPurchase:
		if !op.Amount.IsPositive() {
			return ierr.NewError("amount must be positive").
				WithHint("Amount must be greater than zero").
				WithReportableDetails(map[string]any{
					"amount": op.Amount,
				}).
				Mark(ierr.ErrValidation)
		}
	case types.TransactionKindCreditRenewal:
		if op.NewAllotment.IsNegative() {
			return ierr.NewError("allotment cannot be negative").
				WithHint("Renewal allotment must be zero or positive").
				Mark(ierr.ErrValidation)
		}
		if op.Cycle == "" {
			return ierr.NewError("cycle is required for renewals").
				WithHint("Renewals must name the billing cycle they apply to").
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}

// Apply computes the balance resulting from the operation without touching
// the original. The returned error is terminal; retrying the same operation
// against the same balance cannot succeed.
func (op *Operation) Apply(b *Balance) (*Balance, error) {
	next := b.Clone()

	switch op.Kind {
	case types.TransactionKindDebitUsage:
		if b.Total().LessThan(op.Amount) {
			return nil, ierr.NewError("insufficient credits").
				WithHint("Not enough credits available for this operation").
				WithReportableDetails(map[string]any{
					"available": b.Total(),
					"requested": op.Amount,
				}).
				Mark(ierr.ErrInsufficientCredits)
		}
		// Spend monthly credits before purchased ones; purchased credits
		// only cover the shortfall.
		fromMonthly := decimal.Min(b.MonthlyRemaining, op.Amount)
		next.MonthlyRemaining = b.MonthlyRemaining.Sub(fromMonthly)
		next.PurchasedRemaining = b.PurchasedRemaining.Sub(op.Amount.Sub(fromMonthly))

	case types.TransactionKindCreditPurchase:
		// Purchased credits never expire and survive tier changes
		next.PurchasedRemaining = b.PurchasedRemaining.Add(op.Amount)

	case types.TransactionKindCreditRenewal:
		// A reset, not an accumulation: the unspent remainder is dropped
		next.MonthlyRemaining = op.NewAllotment
		next.MonthlyAllotment = op.NewAllotment
		next.CycleKey = op.Cycle

	case types.TransactionKindExpiryClawback:
		// Purchased credits are deliberately preserved across downgrade
		next.MonthlyRemaining = decimal.Zero
		next.MonthlyAllotment = decimal.Zero

	default:
		return nil, ierr.NewError("unsupported transaction kind").
			WithHint("Unsupported ledger operation").
			Mark(ierr.ErrInvalidOperation)
	}

	next.Version = b.Version + 1
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// SignedAmount returns the amount to record on the transaction row: the
// change in total available credits produced by applying op to prev
func (op *Operation) SignedAmount(prev, next *Balance) decimal.Decimal {
	return next.Total().Sub(prev.Total())
}
