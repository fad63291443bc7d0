package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
)

const (
	// applyMaxRetries bounds how often a version conflict is retried before
	// the error is surfaced to the caller
	applyMaxRetries = 3
	applyRetryDelay = 50 * time.Millisecond
)

// DebitCommand deducts credits for feature usage
type DebitCommand struct {
	AccountID      string
	Amount         decimal.Decimal
	IdempotencyKey string
	Description    string
	Metadata       types.Metadata
}

// PurchaseCommand adds purchased credits from a completed payment
type PurchaseCommand struct {
	AccountID      string
	Amount         decimal.Decimal
	IdempotencyKey string
	Description    string
	Metadata       types.Metadata
}

// RenewalCommand resets the monthly allotment for a billing cycle
type RenewalCommand struct {
	AccountID      string
	NewAllotment   decimal.Decimal
	Cycle          types.CycleKey
	IdempotencyKey string
	Description    string
}

// ClawbackCommand zeroes the monthly bucket on downgrade to free
type ClawbackCommand struct {
	AccountID      string
	IdempotencyKey string
	Description    string
}

// LedgerService is the credit transaction processor. All four operations are
// idempotent: replaying a command with an already-seen idempotency key
// returns the originally recorded transaction without re-applying it.
type LedgerService interface {
	Debit(ctx context.Context, cmd DebitCommand) (*ledger.Transaction, error)
	CreditPurchase(ctx context.Context, cmd PurchaseCommand) (*ledger.Transaction, error)
	CreditRenewal(ctx context.Context, cmd RenewalCommand) (*ledger.Transaction, error)
	ExpireClawback(ctx context.Context, cmd ClawbackCommand) (*ledger.Transaction, error)

	GetBalance(ctx context.Context, accountID string) (*ledger.Balance, error)
	ListTransactions(ctx context.Context, f *ledger.TransactionFilter) ([]*ledger.Transaction, error)
}

type ledgerService struct {
	ServiceParams
}

// NewLedgerService creates a new instance of LedgerService
func NewLedgerService(params ServiceParams) LedgerService {
	return &ledgerService{ServiceParams: params}
}

func (s *ledgerService) Debit(ctx context.Context, cmd DebitCommand) (*ledger.Transaction, error) {
	return s.apply(ctx, &ledger.Operation{
		AccountID:      cmd.AccountID,
		Kind:           types.TransactionKindDebitUsage,
		Amount:         cmd.Amount,
		IdempotencyKey: cmd.IdempotencyKey,
		Description:    cmd.Description,
		Metadata:       cmd.Metadata,
	})
}

func (s *ledgerService) CreditPurchase(ctx context.Context, cmd PurchaseCommand) (*ledger.Transaction, error) {
	return s.apply(ctx, &ledger.Operation{
		AccountID:      cmd.AccountID,
		Kind:           types.TransactionKindCreditPurchase,
		Amount:         cmd.Amount,
		IdempotencyKey: cmd.IdempotencyKey,
		Description:    cmd.Description,
		Metadata:       cmd.Metadata,
	})
}

func (s *ledgerService) CreditRenewal(ctx context.Context, cmd RenewalCommand) (*ledger.Transaction, error) {
	return s.apply(ctx, &ledger.Operation{
		AccountID:      cmd.AccountID,
		Kind:           types.TransactionKindCreditRenewal,
		NewAllotment:   cmd.NewAllotment,
		Cycle:          cmd.Cycle,
		IdempotencyKey: cmd.IdempotencyKey,
		Description:    cmd.Description,
	})
}

func (s *ledgerService) ExpireClawback(ctx context.Context, cmd ClawbackCommand) (*ledger.Transaction, error) {
	return s.apply(ctx, &ledger.Operation{
		AccountID:      cmd.AccountID,
		Kind:           types.TransactionKindExpiryClawback,
		IdempotencyKey: cmd.IdempotencyKey,
		Description:    cmd.Description,
	})
}

func (s *ledgerService) GetBalance(ctx context.Context, accountID string) (*ledger.Balance, error) {
	return s.LedgerRepo.GetBalance(ctx, accountID)
}

func (s *ledgerService) ListTransactions(ctx context.Context, f *ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	return s.LedgerRepo.ListTransactions(ctx, f)
}

// apply routes one operation through the ledger store's idempotent-apply
// contract. Concurrent-writer failures (version conflicts and lost
// idempotency-key races) are retried with a bounded constant backoff;
// business failures are permanent.
func (s *ledgerService) apply(ctx context.Context, op *ledger.Operation) (*ledger.Transaction, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	var result *ledger.Transaction
	operation := func() error {
		txn, err := s.applyOnce(ctx, op)
		if err != nil {
			// Losing the idempotency-key race is retried like a version
			// conflict: the fresh attempt finds the committed transaction
			// and returns it as a replay.
			if ierr.IsVersionConflict(err) || ierr.IsAlreadyExists(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = txn
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(applyRetryDelay), applyMaxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		s.Logger.Errorw("ledger operation failed",
			"account_id", op.AccountID,
			"kind", op.Kind,
			"idempotency_key", op.IdempotencyKey,
			"error", err,
		)
		return nil, err
	}

	return result, nil
}

func (s *ledgerService) applyOnce(ctx context.Context, op *ledger.Operation) (*ledger.Transaction, error) {
	var result *ledger.Transaction

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Replays are successes, not errors: return the original result
		existing, err := s.LedgerRepo.GetTransactionByIdempotencyKey(ctx, op.AccountID, op.IdempotencyKey)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			s.Logger.Debugw("ledger operation replayed, returning prior result",
				"account_id", op.AccountID,
				"idempotency_key", op.IdempotencyKey,
				"transaction_id", existing.ID,
			)
			result = existing
			return nil
		}

		prev, err := s.LedgerRepo.GetBalanceForUpdate(ctx, op.AccountID)
		if err != nil {
			return err
		}

		next, err := op.Apply(prev)
		if err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_TRANSACTION),
			AccountID:      op.AccountID,
			Kind:           op.Kind,
			Amount:         op.SignedAmount(prev, next),
			IdempotencyKey: op.IdempotencyKey,
			MonthlyAfter:   next.MonthlyRemaining,
			PurchasedAfter: next.PurchasedRemaining,
			Description:    op.Description,
			Metadata:       op.Metadata,
			BaseModel:      types.GetDefaultBaseModel(ctx),
		}
		if txn.TenantID == "" {
			txn.TenantID = prev.TenantID
		}

		// A unique violation here means a concurrent writer won the race for
		// this idempotency key. The constraint error aborts the surrounding
		// transaction, so recovery cannot run inside it; the error propagates
		// and the retried attempt reads the committed row through the replay
		// check above.
		if err := s.LedgerRepo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		if err := s.LedgerRepo.UpdateBalance(ctx, next, prev.Version); err != nil {
			return err
		}

		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
