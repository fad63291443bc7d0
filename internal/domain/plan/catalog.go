package plan

import (
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Plan describes what a subscription tier grants. The catalog is the single
// source of truth for these numbers; no handler carries its own copy.
type Plan struct {
	Tier                   types.Tier          `json:"tier"`
	MonthlyCreditAllotment decimal.Decimal     `json:"monthly_credit_allotment"`
	MaxTeams               int                 `json:"max_teams"`
	MaxTeamMembers         int                 `json:"max_team_members"`
	ThemeCount             int                 `json:"theme_count"`
	Features               []types.FeatureFlag `json:"features"`
}

// HasFeature reports whether the plan grants the given feature
func (p Plan) HasFeature(flag types.FeatureFlag) bool {
	return lo.Contains(p.Features, flag)
}

// Catalog is a static tier lookup. Pure data, no side effects.
type Catalog struct {
	plans map[types.Tier]Plan
}

// NewCatalog returns the production plan catalog
func NewCatalog() *Catalog {
	return &Catalog{
		plans: map[types.Tier]Plan{
			types.TierFree: {
				Tier:                   types.TierFree,
				MonthlyCreditAllotment: decimal.Zero,
				MaxTeams:               1,
				MaxTeamMembers:         3,
				ThemeCount:             2,
				Features: []types.FeatureFlag{
					types.FeatureAIAssistant,
				},
			},
			types.TierPremium: {
				Tier:                   types.TierPremium,
				MonthlyCreditAllotment: decimal.NewFromInt(100),
				MaxTeams:               5,
				MaxTeamMembers:         10,
				ThemeCount:             10,
				Features: []types.FeatureFlag{
					types.FeatureAIAssistant,
					types.FeatureCustomThemes,
					types.FeatureCalendarSync,
				},
			},
			types.TierPro: {
				Tier:                   types.TierPro,
				MonthlyCreditAllotment: decimal.NewFromInt(500),
				MaxTeams:               20,
				MaxTeamMembers:         50,
				ThemeCount:             25,
				Features: []types.FeatureFlag{
					types.FeatureAIAssistant,
					types.FeatureCustomThemes,
					types.FeatureCalendarSync,
					types.FeatureTeamWorkspaces,
					types.FeaturePrioritySupport,
				},
			},
		},
	}
}

// Get returns the plan for a tier
func (c *Catalog) Get(tier types.Tier) (Plan, error) {
	p, ok := c.plans[tier]
	if !ok {
		return Plan{}, ierr.NewError("unknown tier").
			WithHint("No plan exists for the requested tier").
			WithReportableDetails(map[string]any{
				"tier": tier,
			}).
			Mark(ierr.ErrValidation)
	}
	return p, nil
}

// Tiers lists every tier in the catalog
func (c *Catalog) Tiers() []types.Tier {
	return lo.Keys(c.plans)
}
