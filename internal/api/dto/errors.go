package dto

import (
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/shopspring/decimal"
)

func errAmountNotPositive(amount decimal.Decimal) error {
	return ierr.NewError("amount must be positive").
		WithHint("Amount must be greater than zero").
		WithReportableDetails(map[string]any{
			"amount": amount,
		}).
		Mark(ierr.ErrValidation)
}
