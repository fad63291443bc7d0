package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/testutil"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceSuite struct {
	testutil.BaseServiceTestSuite
	ledgerService LedgerService
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.ledgerService = NewLedgerService(s.params())
}

func (s *LedgerServiceSuite) params() ServiceParams {
	return ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		AccountRepo: s.GetStores().AccountRepo,
		LedgerRepo:  s.GetStores().LedgerRepo,
		Catalog:     s.GetCatalog(),
	}
}

// seedBalance creates an account with a balance in the given state and
// returns the account id
func (s *LedgerServiceSuite) seedBalance(tier types.Tier, monthly, purchased int64) string {
	a := &account.Account{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		ExternalID: types.GenerateUUID(),
		Name:       "Test Account",
		Tier:       tier,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().AccountRepo.Create(s.GetContext(), a))

	b := &ledger.Balance{
		AccountID:          a.ID,
		MonthlyRemaining:   decimal.NewFromInt(monthly),
		PurchasedRemaining: decimal.NewFromInt(purchased),
		MonthlyAllotment:   decimal.NewFromInt(monthly),
		CycleKey:           types.CycleKeyFor(s.GetNow()),
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().LedgerRepo.CreateBalance(s.GetContext(), b))
	return a.ID
}

func (s *LedgerServiceSuite) getBalance(accountID string) *ledger.Balance {
	b, err := s.GetStores().LedgerRepo.GetBalance(s.GetContext(), accountID)
	s.NoError(err)
	return b
}

func (s *LedgerServiceSuite) TestDebitSpendsMonthlyBeforePurchased() {
	id := s.seedBalance(types.TierPremium, 5, 10)

	txn, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(8),
		IdempotencyKey: "req-1",
		Description:    "ai assistant request",
	})
	s.NoError(err)
	s.NotNil(txn)
	s.Equal(types.TransactionKindDebitUsage, txn.Kind)
	s.True(txn.Amount.Equal(decimal.NewFromInt(-8)))
	s.True(txn.MonthlyAfter.IsZero())
	s.True(txn.PurchasedAfter.Equal(decimal.NewFromInt(7)))

	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.IsZero())
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(7)))
	s.Equal(int64(1), b.Version)
}

func (s *LedgerServiceSuite) TestDebitWithinMonthlyLeavesPurchasedUntouched() {
	id := s.seedBalance(types.TierPremium, 100, 20)

	_, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(30),
		IdempotencyKey: "req-1",
	})
	s.NoError(err)

	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.Equal(decimal.NewFromInt(70)))
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(20)))
}

func (s *LedgerServiceSuite) TestDebitInsufficientCredits() {
	id := s.seedBalance(types.TierFree, 2, 1)

	txn, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(5),
		IdempotencyKey: "req-1",
	})
	s.Error(err)
	s.Nil(txn)
	s.True(ierr.IsInsufficientCredits(err))

	// Balance and log are untouched by the failed debit
	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.Equal(decimal.NewFromInt(2)))
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(1)))
	s.Equal(int64(0), b.Version)

	count, err := s.GetStores().LedgerRepo.CountTransactions(s.GetContext(), &ledger.TransactionFilter{AccountID: id})
	s.NoError(err)
	s.Equal(0, count)
}

func (s *LedgerServiceSuite) TestDebitExactTotalDrainsBalance() {
	id := s.seedBalance(types.TierPremium, 5, 3)

	_, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(8),
		IdempotencyKey: "req-1",
	})
	s.NoError(err)

	b := s.getBalance(id)
	s.True(b.Total().IsZero())
}

func (s *LedgerServiceSuite) TestDebitReplayReturnsOriginalTransaction() {
	id := s.seedBalance(types.TierPremium, 50, 0)

	cmd := DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(10),
		IdempotencyKey: "req-1",
	}

	first, err := s.ledgerService.Debit(s.GetContext(), cmd)
	s.NoError(err)

	second, err := s.ledgerService.Debit(s.GetContext(), cmd)
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	// Applied exactly once
	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.Equal(decimal.NewFromInt(40)))
	s.Equal(int64(1), b.Version)
}

func (s *LedgerServiceSuite) TestReplayWithDifferentAmountStillReturnsOriginal() {
	id := s.seedBalance(types.TierPremium, 50, 0)

	first, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(10),
		IdempotencyKey: "req-1",
	})
	s.NoError(err)

	// The key wins over the payload; the conflicting amount is ignored
	second, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(25),
		IdempotencyKey: "req-1",
	})
	s.NoError(err)
	s.Equal(first.ID, second.ID)
	s.True(s.getBalance(id).MonthlyRemaining.Equal(decimal.NewFromInt(40)))
}

func (s *LedgerServiceSuite) TestCreditPurchaseAddsToPurchasedBucket() {
	id := s.seedBalance(types.TierFree, 0, 0)

	txn, err := s.ledgerService.CreditPurchase(s.GetContext(), PurchaseCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(25),
		IdempotencyKey: "evt-1",
	})
	s.NoError(err)
	s.Equal(types.TransactionKindCreditPurchase, txn.Kind)
	s.True(txn.Amount.Equal(decimal.NewFromInt(25)))

	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.IsZero())
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(25)))
}

func (s *LedgerServiceSuite) TestRenewalResetsInsteadOfAccumulating() {
	id := s.seedBalance(types.TierPremium, 30, 5)

	txn, err := s.ledgerService.CreditRenewal(s.GetContext(), RenewalCommand{
		AccountID:      id,
		NewAllotment:   decimal.NewFromInt(100),
		Cycle:          types.CycleKey("2026-10"),
		IdempotencyKey: "renew-2026-10",
	})
	s.NoError(err)
	s.Equal(types.TransactionKindCreditRenewal, txn.Kind)
	// 30 unspent dropped, 100 granted
	s.True(txn.Amount.Equal(decimal.NewFromInt(70)))

	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.Equal(decimal.NewFromInt(100)))
	s.True(b.MonthlyAllotment.Equal(decimal.NewFromInt(100)))
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(5)))
	s.Equal(types.CycleKey("2026-10"), b.CycleKey)
}

func (s *LedgerServiceSuite) TestRenewalReplaySameCycleIsNoOp() {
	id := s.seedBalance(types.TierPremium, 30, 0)

	cmd := RenewalCommand{
		AccountID:      id,
		NewAllotment:   decimal.NewFromInt(100),
		Cycle:          types.CycleKey("2026-10"),
		IdempotencyKey: "renew-2026-10",
	}

	_, err := s.ledgerService.CreditRenewal(s.GetContext(), cmd)
	s.NoError(err)

	// Spend some of the fresh allotment, then replay the renewal
	_, err = s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(40),
		IdempotencyKey: "req-1",
	})
	s.NoError(err)

	_, err = s.ledgerService.CreditRenewal(s.GetContext(), cmd)
	s.NoError(err)

	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.Equal(decimal.NewFromInt(60)))
}

func (s *LedgerServiceSuite) TestClawbackZeroesMonthlyPreservesPurchased() {
	id := s.seedBalance(types.TierPro, 40, 12)

	txn, err := s.ledgerService.ExpireClawback(s.GetContext(), ClawbackCommand{
		AccountID:      id,
		IdempotencyKey: "expire-1",
	})
	s.NoError(err)
	s.Equal(types.TransactionKindExpiryClawback, txn.Kind)
	s.True(txn.Amount.Equal(decimal.NewFromInt(-40)))

	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.IsZero())
	s.True(b.MonthlyAllotment.IsZero())
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(12)))
}

func (s *LedgerServiceSuite) TestDebitRequiresIdempotencyKey() {
	id := s.seedBalance(types.TierPremium, 50, 0)

	_, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID: id,
		Amount:    decimal.NewFromInt(10),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *LedgerServiceSuite) TestDebitRejectsNonPositiveAmount() {
	id := s.seedBalance(types.TierPremium, 50, 0)

	_, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(-5),
		IdempotencyKey: "req-1",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *LedgerServiceSuite) TestDebitUnknownAccount() {
	_, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
		AccountID:      "acct_missing",
		Amount:         decimal.NewFromInt(1),
		IdempotencyKey: "req-1",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

// TestBalanceIsFoldOverTransactionLog drives a mixed sequence of operations
// and checks that replaying the recorded signed amounts reproduces the
// stored balance total.
func (s *LedgerServiceSuite) TestBalanceIsFoldOverTransactionLog() {
	id := s.seedBalance(types.TierPremium, 100, 0)
	ctx := s.GetContext()

	_, err := s.ledgerService.Debit(ctx, DebitCommand{AccountID: id, Amount: decimal.NewFromInt(35), IdempotencyKey: "d1"})
	s.NoError(err)
	_, err = s.ledgerService.CreditPurchase(ctx, PurchaseCommand{AccountID: id, Amount: decimal.NewFromInt(50), IdempotencyKey: "p1"})
	s.NoError(err)
	_, err = s.ledgerService.Debit(ctx, DebitCommand{AccountID: id, Amount: decimal.NewFromInt(80), IdempotencyKey: "d2"})
	s.NoError(err)
	_, err = s.ledgerService.CreditRenewal(ctx, RenewalCommand{
		AccountID:      id,
		NewAllotment:   decimal.NewFromInt(100),
		Cycle:          types.CycleKey("2026-10"),
		IdempotencyKey: "r1",
	})
	s.NoError(err)

	txns, err := s.ledgerService.ListTransactions(ctx, &ledger.TransactionFilter{AccountID: id})
	s.NoError(err)
	s.Len(txns, 4)

	total := decimal.NewFromInt(100)
	for _, t := range txns {
		total = total.Add(t.Amount)
	}

	b := s.getBalance(id)
	s.True(b.Total().Equal(total))
	s.Equal(int64(4), b.Version)
}

func (s *LedgerServiceSuite) TestListTransactionsFiltersByKind() {
	id := s.seedBalance(types.TierPremium, 100, 0)
	ctx := s.GetContext()

	_, err := s.ledgerService.Debit(ctx, DebitCommand{AccountID: id, Amount: decimal.NewFromInt(10), IdempotencyKey: "d1"})
	s.NoError(err)
	_, err = s.ledgerService.CreditPurchase(ctx, PurchaseCommand{AccountID: id, Amount: decimal.NewFromInt(20), IdempotencyKey: "p1"})
	s.NoError(err)
	_, err = s.ledgerService.Debit(ctx, DebitCommand{AccountID: id, Amount: decimal.NewFromInt(5), IdempotencyKey: "d2"})
	s.NoError(err)

	kind := types.TransactionKindDebitUsage
	txns, err := s.ledgerService.ListTransactions(ctx, &ledger.TransactionFilter{AccountID: id, Kind: &kind})
	s.NoError(err)
	s.Len(txns, 2)
	for _, t := range txns {
		s.Equal(types.TransactionKindDebitUsage, t.Kind)
	}
}

func (s *LedgerServiceSuite) TestFreeTierRenewalGrantsNothing() {
	id := s.seedBalance(types.TierFree, 0, 15)

	p, err := s.GetCatalog().Get(types.TierFree)
	s.NoError(err)

	_, err = s.ledgerService.CreditRenewal(s.GetContext(), RenewalCommand{
		AccountID:      id,
		NewAllotment:   p.MonthlyCreditAllotment,
		Cycle:          types.CycleKey("2026-10"),
		IdempotencyKey: "r1",
	})
	s.NoError(err)

	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.IsZero())
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(15)))
}

// contendingLedgerStore commits a rival transaction for the same idempotency
// key right before the first insert, forcing the caller to lose the race.
type contendingLedgerStore struct {
	ledger.Repository
	rivalTxn     *ledger.Transaction
	rivalBalance *ledger.Balance
	once         sync.Once
}

func (r *contendingLedgerStore) CreateTransaction(ctx context.Context, t *ledger.Transaction) error {
	r.once.Do(func() {
		_ = r.Repository.CreateTransaction(ctx, r.rivalTxn)
		_ = r.Repository.UpdateBalance(ctx, r.rivalBalance, r.rivalBalance.Version-1)
	})
	return r.Repository.CreateTransaction(ctx, t)
}

func (s *LedgerServiceSuite) TestDebitLosingIdempotencyRaceReturnsCommittedTransaction() {
	id := s.seedBalance(types.TierPremium, 10, 0)

	rival := &ledger.Transaction{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_TRANSACTION),
		AccountID:      id,
		Kind:           types.TransactionKindDebitUsage,
		Amount:         decimal.NewFromInt(-4),
		IdempotencyKey: "req-race",
		MonthlyAfter:   decimal.NewFromInt(6),
		PurchasedAfter: decimal.Zero,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	committed := s.getBalance(id)
	committed.MonthlyRemaining = decimal.NewFromInt(6)
	committed.Version++

	params := s.params()
	params.LedgerRepo = &contendingLedgerStore{
		Repository:   s.GetStores().LedgerRepo,
		rivalTxn:     rival,
		rivalBalance: committed,
	}
	svc := NewLedgerService(params)

	txn, err := svc.Debit(s.GetContext(), DebitCommand{
		AccountID:      id,
		Amount:         decimal.NewFromInt(4),
		IdempotencyKey: "req-race",
	})
	s.NoError(err)
	s.Equal(rival.ID, txn.ID)

	// The rival's write stands and the loser applied nothing on top of it
	b := s.getBalance(id)
	s.True(b.MonthlyRemaining.Equal(decimal.NewFromInt(6)))
	s.EqualValues(1, b.Version)

	count, err := s.GetStores().LedgerRepo.CountTransactions(s.GetContext(), &ledger.TransactionFilter{AccountID: id})
	s.NoError(err)
	s.Equal(1, count)
}

func (s *LedgerServiceSuite) TestConcurrentDebitsNeverOverdraw() {
	id := s.seedBalance(types.TierPremium, 100, 0)

	const workers = 20
	amount := decimal.NewFromInt(10)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.ledgerService.Debit(s.GetContext(), DebitCommand{
				AccountID:      id,
				Amount:         amount,
				IdempotencyKey: fmt.Sprintf("req-%d", i),
			})
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case ierr.IsInsufficientCredits(err):
			insufficient++
		default:
			s.Failf("unexpected debit error", "%v", err)
		}
	}
	s.Equal(10, succeeded)
	s.Equal(10, insufficient)

	b := s.getBalance(id)
	s.True(b.Total().IsZero())
	s.False(b.MonthlyRemaining.IsNegative())
	s.False(b.PurchasedRemaining.IsNegative())

	count, err := s.GetStores().LedgerRepo.CountTransactions(s.GetContext(), &ledger.TransactionFilter{AccountID: id})
	s.NoError(err)
	s.Equal(10, count)
}
