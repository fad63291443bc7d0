package service

import (
	"context"
	"time"

	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/domain/plan"
	"github.com/shopspring/decimal"
)

// EntitlementService resolves effective permissions from the plan catalog
// and a balance snapshot. The computation itself is pure; only the Get
// variants touch storage.
type EntitlementService interface {
	ComputeEntitlements(a *account.Account, b *ledger.Balance, now time.Time) (*plan.Entitlements, error)
	GetEntitlements(ctx context.Context, accountID string) (*plan.Entitlements, error)
	CanAfford(b *ledger.Balance, cost decimal.Decimal) bool
}

type entitlementService struct {
	ServiceParams
}

// NewEntitlementService creates a new instance of EntitlementService
func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

// ComputeEntitlements resolves the account's effective tier as of now, so an
// account whose expiry has passed reads as free even before the sweeper has
// persisted the downgrade
func (s *entitlementService) ComputeEntitlements(a *account.Account, b *ledger.Balance, now time.Time) (*plan.Entitlements, error) {
	effective := a.EffectiveTier(now)

	p, err := s.Catalog.Get(effective)
	if err != nil {
		return nil, err
	}

	available := decimal.Zero
	if b != nil {
		available = b.Total()
		// Once past expiry the monthly bucket is no longer spendable; only
		// purchased credits survive until the sweeper claws the rest back.
		if effective != a.Tier {
			available = b.PurchasedRemaining
		}
	}

	return &plan.Entitlements{
		AccountID:        a.ID,
		EffectiveTier:    effective,
		LifecycleState:   a.LifecycleState(now),
		Features:         p.Features,
		MonthlyAllotment: p.MonthlyCreditAllotment,
		AvailableCredits: available,
		MaxTeams:         p.MaxTeams,
		MaxTeamMembers:   p.MaxTeamMembers,
		ThemeCount:       p.ThemeCount,
	}, nil
}

func (s *entitlementService) GetEntitlements(ctx context.Context, accountID string) (*plan.Entitlements, error) {
	a, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	b, err := s.LedgerRepo.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return s.ComputeEntitlements(a, b, time.Now().UTC())
}

// CanAfford reports whether the balance covers cost
func (s *entitlementService) CanAfford(b *ledger.Balance, cost decimal.Decimal) bool {
	return b != nil && b.Total().GreaterThanOrEqual(cost)
}
