package dto

import (
	"time"

	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/focusdeck/creditcore/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// BillingProvider identifies which payment processor sent an event
type BillingProvider string

const (
	BillingProviderStripe BillingProvider = "stripe"
	BillingProviderPaddle BillingProvider = "paddle"
)

func (p BillingProvider) Validate() error {
	allowedValues := []string{
		string(BillingProviderStripe),
		string(BillingProviderPaddle),
	}
	if !lo.Contains(allowedValues, string(p)) {
		return ierr.NewError("unknown billing provider").
			WithHint("Unsupported payment processor").
			WithReportableDetails(map[string]any{
				"allowed":  allowedValues,
				"provider": p,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingEventType classifies inbound billing events
type BillingEventType string

const (
	// BillingEventCreditPurchase is a completed one-time credit pack payment
	BillingEventCreditPurchase BillingEventType = "credit_purchase"
	// BillingEventSubscriptionActivated covers new subscriptions, upgrades
	// and renewals confirmed by the processor
	BillingEventSubscriptionActivated BillingEventType = "subscription_activated"
	// BillingEventSubscriptionCanceled is an immediate cancellation
	BillingEventSubscriptionCanceled BillingEventType = "subscription_canceled"
)

func (t BillingEventType) Validate() error {
	allowedValues := []string{
		string(BillingEventCreditPurchase),
		string(BillingEventSubscriptionActivated),
		string(BillingEventSubscriptionCanceled),
	}
	if !lo.Contains(allowedValues, string(t)) {
		return ierr.NewError("unknown billing event type").
			WithHint("Unsupported billing event type").
			WithReportableDetails(map[string]any{
				"allowed": allowedValues,
				"type":    t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingEventRequest is the normalized inbound webhook payload. The
// processor-assigned event id becomes the ledger idempotency key, so
// processor retries are deduplicated here rather than trusted upstream.
type BillingEventRequest struct {
	EventID           string           `json:"event_id" validate:"required"`
	Type              BillingEventType `json:"type" validate:"required"`
	AccountExternalID string           `json:"account_external_id" validate:"required"`
	// Credits purchased; credit_purchase events only
	Credits decimal.Decimal `json:"credits,omitempty"`
	// Tier and expiry; subscription events only
	Tier      types.Tier `json:"tier,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *BillingEventRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Type.Validate(); err != nil {
		return err
	}

	switch r.Type {
	case BillingEventCreditPurchase:
		if !r.Credits.IsPositive() {
			return errAmountNotPositive(r.Credits)
		}
	case BillingEventSubscriptionActivated:
		if err := r.Tier.Validate(); err != nil {
			return err
		}
		if !r.Tier.IsPaid() {
			return ierr.NewError("subscription events require a paid tier").
				WithHint("Subscription activations must carry a paid tier").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// BillingEventResponse reports how an inbound event was handled
type BillingEventResponse struct {
	EventID       string `json:"event_id"`
	Processed     bool   `json:"processed"`
	Replayed      bool   `json:"replayed,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}
