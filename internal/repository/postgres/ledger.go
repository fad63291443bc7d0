package postgres

import (
	"context"
	"strings"

	"github.com/focusdeck/creditcore/internal/domain/ledger"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/postgres"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/lib/pq"
)

type ledgerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewLedgerRepository creates a new instance of ledger repository
func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ledgerRepository) CreateBalance(ctx context.Context, b *ledger.Balance) error {
	query := `
		INSERT INTO credit_balances (
			account_id, monthly_remaining, purchased_remaining, monthly_allotment,
			cycle_key, version,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:account_id, :monthly_remaining, :purchased_remaining, :monthly_allotment,
			:cycle_key, :version,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A balance already exists for this account").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create credit balance").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ledgerRepository) GetBalance(ctx context.Context, accountID string) (*ledger.Balance, error) {
	return r.getBalance(ctx, accountID, false)
}

// GetBalanceForUpdate locks the balance row for the remainder of the
// surrounding transaction, serializing concurrent mutations per account
func (r *ledgerRepository) GetBalanceForUpdate(ctx context.Context, accountID string) (*ledger.Balance, error) {
	return r.getBalance(ctx, accountID, true)
}

func (r *ledgerRepository) getBalance(ctx context.Context, accountID string, forUpdate bool) (*ledger.Balance, error) {
	query := `
		SELECT * FROM credit_balances
		WHERE account_id = :account_id
		AND tenant_id = :tenant_id
		AND status = :status`
	if forUpdate {
		query += `
		FOR UPDATE`
	}

	params := map[string]interface{}{
		"account_id": accountID,
		"tenant_id":  types.GetTenantID(ctx),
		"status":     types.StatusPublished,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query credit balance").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("credit balance not found").
			WithHint("Account does not exist").
			WithReportableDetails(map[string]any{
				"account_id": accountID,
			}).
			Mark(ierr.ErrNotFound)
	}

	var b ledger.Balance
	if err := rows.StructScan(&b); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan credit balance").
			Mark(ierr.ErrDatabase)
	}
	return &b, nil
}

// UpdateBalance writes b only when the stored version still equals
// expectedVersion. A lost race surfaces as a version conflict the processor
// retries with backoff.
func (r *ledgerRepository) UpdateBalance(ctx context.Context, b *ledger.Balance, expectedVersion int64) error {
	query := `
		UPDATE credit_balances
		SET
			monthly_remaining = :monthly_remaining,
			purchased_remaining = :purchased_remaining,
			monthly_allotment = :monthly_allotment,
			cycle_key = :cycle_key,
			version = :version,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE account_id = :account_id
		AND tenant_id = :tenant_id
		AND status = :status
		AND version = :expected_version`

	params := map[string]interface{}{
		"account_id":          b.AccountID,
		"monthly_remaining":   b.MonthlyRemaining,
		"purchased_remaining": b.PurchasedRemaining,
		"monthly_allotment":   b.MonthlyAllotment,
		"cycle_key":           b.CycleKey,
		"version":             b.Version,
		"expected_version":    expectedVersion,
		"updated_by":          types.GetUserID(ctx),
		"tenant_id":           b.TenantID,
		"status":              types.StatusPublished,
	}

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update credit balance").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("credit balance was modified concurrently").
			WithHint("The balance changed while this operation ran").
			WithReportableDetails(map[string]any{
				"account_id":       b.AccountID,
				"expected_version": expectedVersion,
			}).
			Mark(ierr.ErrVersionConflict)
	}
	return nil
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, t *ledger.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (
			id, account_id, kind, amount, idempotency_key,
			monthly_after, purchased_after, description, metadata,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :account_id, :kind, :amount, :idempotency_key,
			:monthly_after, :purchased_after, :description, :metadata,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("recording ledger transaction",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"kind", t.Kind,
		"idempotency_key", t.IdempotencyKey,
	)

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This operation was already applied").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record ledger transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByIdempotencyKey(ctx context.Context, accountID, key string) (*ledger.Transaction, error) {
	query := `
		SELECT * FROM ledger_transactions
		WHERE account_id = :account_id
		AND idempotency_key = :idempotency_key
		AND tenant_id = :tenant_id
		AND status = :status`

	params := map[string]interface{}{
		"account_id":      accountID,
		"idempotency_key": key,
		"tenant_id":       types.GetTenantID(ctx),
		"status":          types.StatusPublished,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query ledger transaction").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("transaction not found").
			WithHint("No transaction recorded for this idempotency key").
			Mark(ierr.ErrNotFound)
	}

	var t ledger.Transaction
	if err := rows.StructScan(&t); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan ledger transaction").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, f *ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	var conditions []string
	params := map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	conditions = append(conditions, "tenant_id = :tenant_id", "status = :status")
	if f.AccountID != "" {
		conditions = append(conditions, "account_id = :account_id")
		params["account_id"] = f.AccountID
	}
	if f.Kind != nil {
		conditions = append(conditions, "kind = :kind")
		params["kind"] = *f.Kind
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	params["limit"] = limit
	params["offset"] = f.Offset

	query := `
		SELECT * FROM ledger_transactions
		WHERE ` + strings.Join(conditions, "\n\t\tAND ") + `
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset`

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query ledger transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var txns []*ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		if err := rows.StructScan(&t); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan ledger transaction").
				Mark(ierr.ErrDatabase)
		}
		txns = append(txns, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Error iterating transaction rows").
			Mark(ierr.ErrDatabase)
	}
	return txns, nil
}

func (r *ledgerRepository) CountTransactions(ctx context.Context, f *ledger.TransactionFilter) (int, error) {
	var conditions []string
	params := map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	conditions = append(conditions, "tenant_id = :tenant_id", "status = :status")
	if f.AccountID != "" {
		conditions = append(conditions, "account_id = :account_id")
		params["account_id"] = f.AccountID
	}
	if f.Kind != nil {
		conditions = append(conditions, "kind = :kind")
		params["kind"] = *f.Kind
	}

	query := `
		SELECT COUNT(*) FROM ledger_transactions
		WHERE ` + strings.Join(conditions, "\n\t\tAND ")

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count ledger transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to scan transaction count").
				Mark(ierr.ErrDatabase)
		}
	}
	return count, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ierr.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
