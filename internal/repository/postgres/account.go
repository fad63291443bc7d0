package postgres

import (
	"context"
	"time"

	"github.com/focusdeck/creditcore/internal/domain/account"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/postgres"
	"github.com/focusdeck/creditcore/internal/types"
)

type accountRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewAccountRepository creates a new instance of account repository
func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (
			id, external_id, name, tier, tier_expires_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :external_id, :name, :tier, :tier_expires_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating account",
		"account_id", a.ID,
		"tenant_id", a.TenantID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An account with this external id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create account").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	query := `
		SELECT * FROM accounts
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query account").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("account not found").
			WithHint("Account does not exist").
			WithReportableDetails(map[string]any{
				"account_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}

	var a account.Account
	if err := rows.StructScan(&a); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan account").
			Mark(ierr.ErrDatabase)
	}
	return &a, nil
}

func (r *accountRepository) GetByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	query := `
		SELECT * FROM accounts
		WHERE external_id = :external_id
		AND tenant_id = :tenant_id
		AND status = :status`

	params := map[string]interface{}{
		"external_id": externalID,
		"tenant_id":   types.GetTenantID(ctx),
		"status":      types.StatusPublished,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query account").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("account not found").
			WithHint("Account does not exist").
			WithReportableDetails(map[string]any{
				"external_id": externalID,
			}).
			Mark(ierr.ErrNotFound)
	}

	var a account.Account
	if err := rows.StructScan(&a); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan account").
			Mark(ierr.ErrDatabase)
	}
	return &a, nil
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	query := `
		UPDATE accounts
		SET
			name = :name,
			tier = :tier,
			tier_expires_at = :tier_expires_at,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	params := map[string]interface{}{
		"id":              a.ID,
		"name":            a.Name,
		"tier":            a.Tier,
		"tier_expires_at": a.TierExpiresAt,
		"updated_by":      types.GetUserID(ctx),
		"tenant_id":       a.TenantID,
		"status":          types.StatusPublished,
	}

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update account").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("account not found").
			WithHint("Account does not exist").
			WithReportableDetails(map[string]any{
				"account_id": a.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// ListExpired returns paid accounts past their expiry. The sweeper owns the
// downgrade, so this scan crosses tenants deliberately.
func (r *accountRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*account.Account, error) {
	query := `
		SELECT * FROM accounts
		WHERE tier <> :free_tier
		AND tier_expires_at IS NOT NULL
		AND tier_expires_at <= :now
		AND status = :status
		ORDER BY tier_expires_at ASC
		LIMIT :limit`

	params := map[string]interface{}{
		"free_tier": types.TierFree,
		"now":       now,
		"status":    types.StatusPublished,
		"limit":     limit,
	}

	return r.selectAccounts(ctx, query, params)
}

// ListRenewalDue returns accounts whose balance has not been renewed for the
// given cycle. Cross-tenant, sweeper only.
func (r *accountRepository) ListRenewalDue(ctx context.Context, cycle types.CycleKey, limit int) ([]*account.Account, error) {
	query := `
		SELECT a.* FROM accounts a
		JOIN credit_balances b ON b.account_id = a.id AND b.tenant_id = a.tenant_id
		WHERE b.cycle_key <> :cycle
		AND a.status = :status
		AND b.status = :status
		ORDER BY a.created_at ASC
		LIMIT :limit`

	params := map[string]interface{}{
		"cycle":  cycle,
		"status": types.StatusPublished,
		"limit":  limit,
	}

	return r.selectAccounts(ctx, query, params)
}

func (r *accountRepository) selectAccounts(ctx context.Context, query string, params map[string]interface{}) ([]*account.Account, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query accounts").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		var a account.Account
		if err := rows.StructScan(&a); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan account").
				Mark(ierr.ErrDatabase)
		}
		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Error iterating account rows").
			Mark(ierr.ErrDatabase)
	}
	return accounts, nil
}
