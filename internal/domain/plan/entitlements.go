package plan

import (
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
)

// Entitlements is the effective permission set of an account, resolved from
// the plan catalog and the account's current balance snapshot
type Entitlements struct {
	AccountID        string               `json:"account_id"`
	EffectiveTier    types.Tier           `json:"effective_tier"`
	LifecycleState   types.LifecycleState `json:"lifecycle_state"`
	Features         []types.FeatureFlag  `json:"features"`
	MonthlyAllotment decimal.Decimal      `json:"monthly_allotment"`
	AvailableCredits decimal.Decimal      `json:"available_credits"`
	MaxTeams         int                  `json:"max_teams"`
	MaxTeamMembers   int                  `json:"max_team_members"`
	ThemeCount       int                  `json:"theme_count"`
}

// FeatureAllowed reports whether the entitlements grant the given feature
func (e *Entitlements) FeatureAllowed(flag types.FeatureFlag) bool {
	for _, f := range e.Features {
		if f == flag {
			return true
		}
	}
	return false
}

// CanAfford reports whether the available credits cover cost
func (e *Entitlements) CanAfford(cost decimal.Decimal) bool {
	return e.AvailableCredits.GreaterThanOrEqual(cost)
}
