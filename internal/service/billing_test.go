package service

import (
	"testing"
	"time"

	"github.com/focusdeck/creditcore/internal/api/dto"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/testutil"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	billingService BillingService
	accountService AccountService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		AccountRepo: s.GetStores().AccountRepo,
		LedgerRepo:  s.GetStores().LedgerRepo,
		Catalog:     s.GetCatalog(),
	}
	s.billingService = NewBillingService(params)
	s.accountService = NewAccountService(params)
}

func (s *BillingServiceSuite) createAccount(externalID string, tier types.Tier) string {
	resp, err := s.accountService.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		ExternalID: externalID,
		Tier:       tier,
	})
	s.NoError(err)
	return resp.ID
}

func (s *BillingServiceSuite) TestCreditPurchaseEvent() {
	id := s.createAccount("user-1", types.TierFree)

	resp, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_1",
		Type:              dto.BillingEventCreditPurchase,
		AccountExternalID: "user-1",
		Credits:           decimal.NewFromInt(50),
	})
	s.NoError(err)
	s.True(resp.Processed)
	s.False(resp.Replayed)
	s.NotEmpty(resp.TransactionID)

	balance, err := s.accountService.GetBalance(s.GetContext(), id)
	s.NoError(err)
	s.True(balance.PurchasedRemaining.Equal(decimal.NewFromInt(50)))
}

func (s *BillingServiceSuite) TestRedeliveredEventIsReplayed() {
	id := s.createAccount("user-1", types.TierFree)

	req := &dto.BillingEventRequest{
		EventID:           "evt_1",
		Type:              dto.BillingEventCreditPurchase,
		AccountExternalID: "user-1",
		Credits:           decimal.NewFromInt(50),
	}

	first, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, req)
	s.NoError(err)

	second, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, req)
	s.NoError(err)
	s.True(second.Replayed)
	s.Equal(first.TransactionID, second.TransactionID)

	// Credited exactly once
	balance, err := s.accountService.GetBalance(s.GetContext(), id)
	s.NoError(err)
	s.True(balance.PurchasedRemaining.Equal(decimal.NewFromInt(50)))
}

func (s *BillingServiceSuite) TestSameEventIDFromDifferentProviders() {
	id := s.createAccount("user-1", types.TierFree)

	req := &dto.BillingEventRequest{
		EventID:           "evt_1",
		Type:              dto.BillingEventCreditPurchase,
		AccountExternalID: "user-1",
		Credits:           decimal.NewFromInt(10),
	}

	_, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, req)
	s.NoError(err)

	// Keys are provider-qualified, so this is a distinct purchase
	resp, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderPaddle, req)
	s.NoError(err)
	s.False(resp.Replayed)

	balance, err := s.accountService.GetBalance(s.GetContext(), id)
	s.NoError(err)
	s.True(balance.PurchasedRemaining.Equal(decimal.NewFromInt(20)))
}

func (s *BillingServiceSuite) TestSubscriptionActivatedUpgradesAndGrants() {
	id := s.createAccount("user-1", types.TierFree)
	expiry := s.GetNow().Add(30 * 24 * time.Hour)

	resp, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_sub_1",
		Type:              dto.BillingEventSubscriptionActivated,
		AccountExternalID: "user-1",
		Tier:              types.TierPro,
		ExpiresAt:         &expiry,
	})
	s.NoError(err)
	s.True(resp.Processed)

	account, err := s.accountService.GetAccount(s.GetContext(), id)
	s.NoError(err)
	s.Equal(types.TierPro, account.Tier)
	s.NotNil(account.TierExpiresAt)

	balance, err := s.accountService.GetBalance(s.GetContext(), id)
	s.NoError(err)
	s.True(balance.MonthlyRemaining.Equal(decimal.NewFromInt(500)))
}

func (s *BillingServiceSuite) TestSubscriptionCanceledDowngradesKeepingPurchased() {
	id := s.createAccount("user-1", types.TierPremium)

	_, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_buy",
		Type:              dto.BillingEventCreditPurchase,
		AccountExternalID: "user-1",
		Credits:           decimal.NewFromInt(30),
	})
	s.NoError(err)

	_, err = s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_cancel",
		Type:              dto.BillingEventSubscriptionCanceled,
		AccountExternalID: "user-1",
	})
	s.NoError(err)

	account, err := s.accountService.GetAccount(s.GetContext(), id)
	s.NoError(err)
	s.Equal(types.TierFree, account.Tier)
	s.Nil(account.TierExpiresAt)

	balance, err := s.accountService.GetBalance(s.GetContext(), id)
	s.NoError(err)
	s.True(balance.MonthlyRemaining.IsZero())
	s.True(balance.PurchasedRemaining.Equal(decimal.NewFromInt(30)))
}

func (s *BillingServiceSuite) TestUnknownAccountRejected() {
	_, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_1",
		Type:              dto.BillingEventCreditPurchase,
		AccountExternalID: "nobody",
		Credits:           decimal.NewFromInt(10),
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingServiceSuite) TestPurchaseRequiresPositiveCredits() {
	s.createAccount("user-1", types.TierFree)

	_, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_1",
		Type:              dto.BillingEventCreditPurchase,
		AccountExternalID: "user-1",
		Credits:           decimal.Zero,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestActivationRequiresPaidTier() {
	s.createAccount("user-1", types.TierFree)

	_, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_1",
		Type:              dto.BillingEventSubscriptionActivated,
		AccountExternalID: "user-1",
		Tier:              types.TierFree,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestUnknownEventTypeRejected() {
	s.createAccount("user-1", types.TierFree)

	_, err := s.billingService.ProcessBillingEvent(s.GetContext(), dto.BillingProviderStripe, &dto.BillingEventRequest{
		EventID:           "evt_1",
		Type:              dto.BillingEventType("refund"),
		AccountExternalID: "user-1",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
