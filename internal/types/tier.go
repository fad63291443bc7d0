package types

import (
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/samber/lo"
)

// Tier represents the subscription level of an account
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
)

func (t Tier) String() string {
	return string(t)
}

func (t Tier) Validate() error {
	allowedValues := []string{
		string(TierFree),
		string(TierPremium),
		string(TierPro),
	}
	if !lo.Contains(allowedValues, string(t)) {
		return ierr.NewError("invalid tier").
			WithHint("Invalid subscription tier").
			WithReportableDetails(map[string]any{
				"allowed": allowedValues,
				"tier":    t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsPaid returns true for tiers that carry a subscription
func (t Tier) IsPaid() bool {
	return t == TierPremium || t == TierPro
}

// LifecycleState represents where an account sits relative to its expiry
type LifecycleState string

const (
	LifecycleStateActive       LifecycleState = "active"
	LifecycleStateExpiringSoon LifecycleState = "expiring_soon"
	LifecycleStateExpired      LifecycleState = "expired"
	LifecycleStateFree         LifecycleState = "free"
)

// FeatureFlag identifies a gated product capability
type FeatureFlag string

const (
	FeatureAIAssistant     FeatureFlag = "ai_assistant"
	FeatureCustomThemes    FeatureFlag = "custom_themes"
	FeatureTeamWorkspaces  FeatureFlag = "team_workspaces"
	FeatureCalendarSync    FeatureFlag = "calendar_sync"
	FeaturePrioritySupport FeatureFlag = "priority_support"
)

func (f FeatureFlag) Validate() error {
	allowedValues := []string{
		string(FeatureAIAssistant),
		string(FeatureCustomThemes),
		string(FeatureTeamWorkspaces),
		string(FeatureCalendarSync),
		string(FeaturePrioritySupport),
	}
	if !lo.Contains(allowedValues, string(f)) {
		return ierr.NewError("invalid feature flag").
			WithHint("Unknown feature flag").
			WithReportableDetails(map[string]any{
				"allowed": allowedValues,
				"flag":    f,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
