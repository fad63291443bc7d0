package dto

import (
	"time"

	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/focusdeck/creditcore/internal/validator"
	"github.com/shopspring/decimal"
)

// DebitRequest represents the request to deduct credits for feature usage.
// Unknown fields are rejected at binding time; callers cannot smuggle
// arbitrary balance updates through this surface.
type DebitRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	// IdempotencyKey is the caller's token for this usage event, e.g. the
	// AI request id
	IdempotencyKey string         `json:"idempotency_key" validate:"required"`
	Description    string         `json:"description,omitempty"`
	Metadata       types.Metadata `json:"metadata,omitempty"`
}

func (r *DebitRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return errAmountNotPositive(r.Amount)
	}
	return nil
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID             string                `json:"id"`
	AccountID      string                `json:"account_id"`
	Kind           types.TransactionKind `json:"kind"`
	Amount         decimal.Decimal       `json:"amount"`
	IdempotencyKey string                `json:"idempotency_key"`
	MonthlyAfter   decimal.Decimal       `json:"monthly_after"`
	PurchasedAfter decimal.Decimal       `json:"purchased_after"`
	Description    string                `json:"description,omitempty"`
	Metadata       types.Metadata        `json:"metadata,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

func FromTransaction(t *ledger.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:             t.ID,
		AccountID:      t.AccountID,
		Kind:           t.Kind,
		Amount:         t.Amount,
		IdempotencyKey: t.IdempotencyKey,
		MonthlyAfter:   t.MonthlyAfter,
		PurchasedAfter: t.PurchasedAfter,
		Description:    t.Description,
		Metadata:       t.Metadata,
		CreatedAt:      t.CreatedAt,
	}
}

// ListTransactionsResponse represents a page of ledger transactions
type ListTransactionsResponse struct {
	Items []*TransactionResponse `json:"items"`
	Total int                    `json:"total"`
}

func FromTransactionList(txns []*ledger.Transaction, total int) *ListTransactionsResponse {
	items := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		items[i] = FromTransaction(t)
	}
	return &ListTransactionsResponse{Items: items, Total: total}
}
