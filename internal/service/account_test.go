package service

import (
	"testing"
	"time"

	"github.com/focusdeck/creditcore/internal/api/dto"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/testutil"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AccountServiceSuite struct {
	testutil.BaseServiceTestSuite
	accountService AccountService
}

func TestAccountService(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

func (s *AccountServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.accountService = NewAccountService(ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		AccountRepo: s.GetStores().AccountRepo,
		LedgerRepo:  s.GetStores().LedgerRepo,
		Catalog:     s.GetCatalog(),
	})
}

func (s *AccountServiceSuite) TestCreateAccountGrantsInitialAllotment() {
	expiry := s.GetNow().Add(30 * 24 * time.Hour)
	resp, err := s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID:    "user-42",
		Name:          "Ada",
		Tier:          types.TierPremium,
		TierExpiresAt: &expiry,
	})
	s.NoError(err)
	s.NotNil(resp)
	s.Equal(types.TierPremium, resp.Tier)
	s.Equal(types.LifecycleStateActive, resp.LifecycleState)

	balance, err := s.accountService.GetBalance(s.GetContext(), resp.ID)
	s.NoError(err)
	s.True(balance.MonthlyRemaining.Equal(decimal.NewFromInt(100)))
	s.True(balance.PurchasedRemaining.IsZero())
	s.Equal(types.CycleKeyFor(s.GetNow()), balance.CycleKey)

	// The grant is on the log, not just the balance
	txns, err := s.GetStores().LedgerRepo.ListTransactions(s.GetContext(), &ledger.TransactionFilter{AccountID: resp.ID})
	s.NoError(err)
	s.Len(txns, 1)
	s.Equal(types.TransactionKindCreditRenewal, txns[0].Kind)
}

func (s *AccountServiceSuite) TestCreateFreeAccountStartsAtZero() {
	resp, err := s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID: "user-7",
		Tier:       types.TierFree,
	})
	s.NoError(err)

	balance, err := s.accountService.GetBalance(s.GetContext(), resp.ID)
	s.NoError(err)
	s.True(balance.TotalAvailable.IsZero())
}

func (s *AccountServiceSuite) TestCreateAccountRejectsFreeWithExpiry() {
	expiry := s.GetNow().Add(time.Hour)
	_, err := s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID:    "user-8",
		Tier:          types.TierFree,
		TierExpiresAt: &expiry,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *AccountServiceSuite) TestCreateAccountRejectsUnknownTier() {
	_, err := s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID: "user-9",
		Tier:       types.Tier("platinum"),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *AccountServiceSuite) TestCreateAccountDuplicateExternalID() {
	_, err := s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID: "user-42",
		Tier:       types.TierFree,
	})
	s.NoError(err)

	_, err = s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID: "user-42",
		Tier:       types.TierFree,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *AccountServiceSuite) TestGetAccountNotFound() {
	_, err := s.accountService.GetAccount(s.GetContext(), "acct_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *AccountServiceSuite) TestGetBalanceUnknownAccount() {
	_, err := s.accountService.GetBalance(s.GetContext(), "acct_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *AccountServiceSuite) TestExpiredAccountReadsAsExpired() {
	expiry := s.GetNow().Add(30 * 24 * time.Hour)
	created, err := s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID:    "user-10",
		Tier:          types.TierPro,
		TierExpiresAt: &expiry,
	})
	s.NoError(err)

	// Move the expiry into the past directly in the store
	a, err := s.GetStores().AccountRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	past := s.GetNow().Add(-time.Hour)
	a.TierExpiresAt = &past
	s.NoError(s.GetStores().AccountRepo.Update(s.GetContext(), a))

	resp, err := s.accountService.GetAccount(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.LifecycleStateExpired, resp.LifecycleState)
}
