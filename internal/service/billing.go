package service

import (
	"context"
	"fmt"
	"time"

	"github.com/focusdeck/creditcore/internal/api/dto"
	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
)

// BillingService translates inbound payment processor events into ledger
// operations. The processor-assigned event id is the idempotency key, so a
// redelivered webhook returns the originally recorded result.
type BillingService interface {
	ProcessBillingEvent(ctx context.Context, provider dto.BillingProvider, req *dto.BillingEventRequest) (*dto.BillingEventResponse, error)
}

type billingService struct {
	ServiceParams
	ledgerSvc LedgerService
}

// NewBillingService creates a new instance of BillingService
func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
		ledgerSvc:     NewLedgerService(params),
	}
}

func (s *billingService) ProcessBillingEvent(ctx context.Context, provider dto.BillingProvider, req *dto.BillingEventRequest) (*dto.BillingEventResponse, error) {
	if err := provider.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a, err := s.AccountRepo.GetByExternalID(ctx, req.AccountExternalID)
	if err != nil {
		return nil, err
	}

	idempotencyKey := fmt.Sprintf("%s:%s", provider, req.EventID)

	// Detect replays up front so the response can say so
	prior, err := s.LedgerRepo.GetTransactionByIdempotencyKey(ctx, a.ID, idempotencyKey)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if prior != nil {
		s.Logger.Infow("billing event replayed",
			"provider", provider,
			"event_id", req.EventID,
			"account_id", a.ID,
		)
		return &dto.BillingEventResponse{
			EventID:       req.EventID,
			Processed:     true,
			Replayed:      true,
			TransactionID: prior.ID,
		}, nil
	}

	resp := &dto.BillingEventResponse{EventID: req.EventID}

	switch req.Type {
	case dto.BillingEventCreditPurchase:
		txn, err := s.ledgerSvc.CreditPurchase(ctx, PurchaseCommand{
			AccountID:      a.ID,
			Amount:         req.Credits,
			IdempotencyKey: idempotencyKey,
			Description:    fmt.Sprintf("credit pack purchase via %s", provider),
			Metadata: types.Metadata{
				"provider": string(provider),
				"event_id": req.EventID,
			},
		})
		if err != nil {
			return nil, err
		}
		resp.TransactionID = txn.ID

	case dto.BillingEventSubscriptionActivated:
		txn, err := s.activateSubscription(ctx, a, req, idempotencyKey)
		if err != nil {
			return nil, err
		}
		resp.TransactionID = txn.ID

	case dto.BillingEventSubscriptionCanceled:
		txn, err := s.cancelSubscription(ctx, a, idempotencyKey)
		if err != nil {
			return nil, err
		}
		resp.TransactionID = txn.ID
	}

	resp.Processed = true
	return resp, nil
}

// activateSubscription persists the new tier and resets the monthly
// allotment in one transaction
func (s *billingService) activateSubscription(ctx context.Context, a *account.Account, req *dto.BillingEventRequest, idempotencyKey string) (*ledger.Transaction, error) {
	p, err := s.Catalog.Get(req.Tier)
	if err != nil {
		return nil, err
	}

	var result *ledger.Transaction
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		a.Tier = req.Tier
		a.TierExpiresAt = req.ExpiresAt
		if err := s.AccountRepo.Update(ctx, a); err != nil {
			return err
		}

		t, err := s.ledgerSvc.CreditRenewal(ctx, RenewalCommand{
			AccountID:      a.ID,
			NewAllotment:   p.MonthlyCreditAllotment,
			Cycle:          types.CycleKeyFor(time.Now().UTC()),
			IdempotencyKey: idempotencyKey,
			Description:    fmt.Sprintf("subscription activated: %s", req.Tier),
		})
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription activated",
		"account_id", a.ID,
		"tier", a.Tier,
		"expires_at", a.TierExpiresAt,
	)
	return result, nil
}

// cancelSubscription claws back the monthly bucket and downgrades to free;
// purchased credits survive
func (s *billingService) cancelSubscription(ctx context.Context, a *account.Account, idempotencyKey string) (*ledger.Transaction, error) {
	var result *ledger.Transaction
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.ledgerSvc.ExpireClawback(ctx, ClawbackCommand{
			AccountID:      a.ID,
			IdempotencyKey: idempotencyKey,
			Description:    "subscription canceled",
		})
		if err != nil {
			return err
		}

		a.Tier = types.TierFree
		a.TierExpiresAt = nil
		if err := s.AccountRepo.Update(ctx, a); err != nil {
			return err
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription canceled", "account_id", a.ID)
	return result, nil
}
