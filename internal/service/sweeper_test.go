package service

import (
	"context"
	"testing"
	"time"

	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/testutil"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SweeperServiceSuite struct {
	testutil.BaseServiceTestSuite
	sweeperService SweeperService
}

func TestSweeperService(t *testing.T) {
	suite.Run(t, new(SweeperServiceSuite))
}

func (s *SweeperServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.sweeperService = NewSweeperService(ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		AccountRepo: s.GetStores().AccountRepo,
		LedgerRepo:  s.GetStores().LedgerRepo,
		Catalog:     s.GetCatalog(),
	})
}

// seedAccount creates an account and balance in the given state. cycle is
// the cycle key already recorded on the balance, so a stale cycle makes the
// account due for renewal.
func (s *SweeperServiceSuite) seedAccount(ctx context.Context, tier types.Tier, expiresAt *time.Time, monthly, purchased int64, cycle types.CycleKey) *account.Account {
	a := &account.Account{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		ExternalID:    types.GenerateUUID(),
		Tier:          tier,
		TierExpiresAt: expiresAt,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().AccountRepo.Create(ctx, a))

	b := &ledger.Balance{
		AccountID:          a.ID,
		MonthlyRemaining:   decimal.NewFromInt(monthly),
		PurchasedRemaining: decimal.NewFromInt(purchased),
		MonthlyAllotment:   decimal.NewFromInt(monthly),
		CycleKey:           cycle,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().LedgerRepo.CreateBalance(ctx, b))
	return a
}

func (s *SweeperServiceSuite) getAccount(id string) *account.Account {
	a, err := s.GetStores().AccountRepo.Get(s.GetContext(), id)
	s.NoError(err)
	return a
}

func (s *SweeperServiceSuite) getBalance(accountID string) *ledger.Balance {
	b, err := s.GetStores().LedgerRepo.GetBalance(s.GetContext(), accountID)
	s.NoError(err)
	return b
}

func prevCycle(now time.Time) types.CycleKey {
	return types.CycleKeyFor(now.AddDate(0, -1, 0))
}

func (s *SweeperServiceSuite) TestRunDowngradesExpiredProAccount() {
	now := s.GetNow()
	expired := now.Add(-48 * time.Hour)
	a := s.seedAccount(s.GetContext(), types.TierPro, &expired, 200, 12, prevCycle(now))

	run, err := s.sweeperService.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, run.Expirations.Success)
	s.Equal(0, run.Expirations.Failed)
	s.Equal(1, run.Renewals.Success)

	got := s.getAccount(a.ID)
	s.Equal(types.TierFree, got.Tier)
	s.Nil(got.TierExpiresAt)

	// Monthly bucket clawed back, renewed as free with a zero allotment;
	// purchased credits survive the downgrade.
	b := s.getBalance(a.ID)
	s.True(b.MonthlyRemaining.IsZero())
	s.True(b.MonthlyAllotment.IsZero())
	s.True(b.PurchasedRemaining.Equal(decimal.NewFromInt(12)))
	s.Equal(types.CycleKeyFor(now), b.CycleKey)
}

func (s *SweeperServiceSuite) TestRunIsIdempotent() {
	now := s.GetNow()
	expired := now.Add(-time.Hour)
	a := s.seedAccount(s.GetContext(), types.TierPro, &expired, 200, 12, prevCycle(now))

	_, err := s.sweeperService.Run(s.GetContext(), now)
	s.NoError(err)
	versionAfterFirst := s.getBalance(a.ID).Version

	// A second run finds nothing to expire and nothing left to renew
	run, err := s.sweeperService.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, run.Expirations.Total)
	s.Equal(0, run.Renewals.Total)
	s.Equal(versionAfterFirst, s.getBalance(a.ID).Version)
}

func (s *SweeperServiceSuite) TestRenewalGrantsCatalogAllotment() {
	now := s.GetNow()
	a := s.seedAccount(s.GetContext(), types.TierPremium, nil, 20, 0, prevCycle(now))

	result, err := s.sweeperService.SweepRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, result.Success)

	b := s.getBalance(a.ID)
	s.True(b.MonthlyRemaining.Equal(decimal.NewFromInt(100)))
	s.True(b.MonthlyAllotment.Equal(decimal.NewFromInt(100)))
	s.Equal(types.CycleKeyFor(now), b.CycleKey)
}

func (s *SweeperServiceSuite) TestRenewalSkipsCurrentCycle() {
	now := s.GetNow()
	a := s.seedAccount(s.GetContext(), types.TierPremium, nil, 60, 0, types.CycleKeyFor(now))

	result, err := s.sweeperService.SweepRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, result.Total)

	// Unspent monthly credits are kept until the next cycle boundary
	s.True(s.getBalance(a.ID).MonthlyRemaining.Equal(decimal.NewFromInt(60)))
}

func (s *SweeperServiceSuite) TestExpirationSkipsActivePaidAccount() {
	now := s.GetNow()
	future := now.Add(30 * 24 * time.Hour)
	a := s.seedAccount(s.GetContext(), types.TierPremium, &future, 80, 0, types.CycleKeyFor(now))

	result, err := s.sweeperService.SweepExpirations(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, result.Total)
	s.Equal(types.TierPremium, s.getAccount(a.ID).Tier)
}

func (s *SweeperServiceSuite) TestSweepReachesAllTenants() {
	now := s.GetNow()
	expired := now.Add(-time.Hour)

	otherTenant := context.WithValue(context.Background(), types.CtxTenantID, "tenant-b")
	a1 := s.seedAccount(s.GetContext(), types.TierPro, &expired, 100, 0, prevCycle(now))
	a2 := s.seedAccount(otherTenant, types.TierPro, &expired, 100, 0, prevCycle(now))

	result, err := s.sweeperService.SweepExpirations(s.GetContext(), now)
	s.NoError(err)
	s.Equal(2, result.Success)

	s.Equal(types.TierFree, s.getAccount(a1.ID).Tier)

	got, err := s.GetStores().AccountRepo.Get(otherTenant, a2.ID)
	s.NoError(err)
	s.Equal(types.TierFree, got.Tier)
}

func (s *SweeperServiceSuite) TestExpirationExactlyAtBoundary() {
	now := s.GetNow()
	a := s.seedAccount(s.GetContext(), types.TierPremium, &now, 50, 0, types.CycleKeyFor(now))

	result, err := s.sweeperService.SweepExpirations(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, result.Success)
	s.Equal(types.TierFree, s.getAccount(a.ID).Tier)
}

func (s *SweeperServiceSuite) TestSweepExpirationsCountsFailedAccountOnce() {
	ctx := s.GetContext()
	now := s.GetNow()
	expired := now.Add(-time.Hour)

	good := s.seedAccount(ctx, types.TierPro, &expired, 40, 0, types.CycleKeyFor(now))

	// An expired account with no balance row, so its clawback fails on
	// every attempt while other accounts keep progressing
	bad := &account.Account{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		ExternalID:    types.GenerateUUID(),
		Tier:          types.TierPro,
		TierExpiresAt: &expired,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	s.NoError(s.GetStores().AccountRepo.Create(ctx, bad))

	result, err := s.sweeperService.SweepExpirations(ctx, now)
	s.NoError(err)
	s.Equal(2, result.Total)
	s.Equal(1, result.Success)
	s.Equal(1, result.Failed)
	s.Equal([]string{bad.ID}, result.FailedAccountIDs)

	s.Equal(types.TierFree, s.getAccount(good.ID).Tier)
	s.Equal(types.TierPro, s.getAccount(bad.ID).Tier)
}
