package ledger

import (
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable record of a single ledger mutation. Rows are
// append-only; the uniqueness of (tenant_id, account_id, idempotency_key)
// enforces exactly-once application.
type Transaction struct {
	ID        string                `db:"id" json:"id"`
	AccountID string                `db:"account_id" json:"account_id"`
	Kind      types.TransactionKind `db:"kind" json:"kind"`
	// Amount is signed: negative for debits, positive for credits
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key"`
	// Resulting balance snapshot after the mutation was applied
	MonthlyAfter   decimal.Decimal `db:"monthly_after" json:"monthly_after"`
	PurchasedAfter decimal.Decimal `db:"purchased_after" json:"purchased_after"`
	Description    string          `db:"description" json:"description"`
	Metadata       types.Metadata  `db:"metadata" json:"metadata"`
	types.BaseModel
}

func (t *Transaction) TableName() string {
	return "ledger_transactions"
}

func (t *Transaction) Validate() error {
	return t.Kind.Validate()
}
