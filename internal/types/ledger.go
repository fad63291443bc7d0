package types

import (
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/samber/lo"
)

// TransactionKind represents the business reason for a ledger mutation
type TransactionKind string

const (
	TransactionKindDebitUsage     TransactionKind = "debit_usage"
	TransactionKindCreditPurchase TransactionKind = "credit_purchase"
	TransactionKindCreditRenewal  TransactionKind = "credit_renewal"
	TransactionKindExpiryClawback TransactionKind = "credit_expiry_clawback"
)

func (k TransactionKind) Validate() error {
	allowedValues := []string{
		string(TransactionKindDebitUsage),
		string(TransactionKindCreditPurchase),
		string(TransactionKindCreditRenewal),
		string(TransactionKindExpiryClawback),
	}
	if !lo.Contains(allowedValues, string(k)) {
		return ierr.NewError("invalid transaction kind").
			WithHint("Invalid ledger transaction kind").
			WithReportableDetails(map[string]any{
				"allowed": allowedValues,
				"kind":    k,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsDebit returns true when the kind removes credits from the account
func (k TransactionKind) IsDebit() bool {
	return k == TransactionKindDebitUsage || k == TransactionKindExpiryClawback
}

