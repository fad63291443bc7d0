package plan

import (
	"testing"

	"github.com/focusdeck/creditcore/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCatalogAllotments(t *testing.T) {
	c := NewCatalog()

	tests := []struct {
		tier types.Tier
		want decimal.Decimal
	}{
		{tier: types.TierFree, want: decimal.Zero},
		{tier: types.TierPremium, want: decimal.NewFromInt(100)},
		{tier: types.TierPro, want: decimal.NewFromInt(500)},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			p, err := c.Get(tt.tier)
			assert.NoError(t, err)
			assert.True(t, p.MonthlyCreditAllotment.Equal(tt.want))
		})
	}
}

func TestCatalogUnknownTier(t *testing.T) {
	c := NewCatalog()

	_, err := c.Get(types.Tier("enterprise"))
	assert.Error(t, err)
}

func TestFeatureGrantsWidenWithTier(t *testing.T) {
	c := NewCatalog()

	free, _ := c.Get(types.TierFree)
	premium, _ := c.Get(types.TierPremium)
	pro, _ := c.Get(types.TierPro)

	// Every tier can reach the assistant; it is metered by credits instead
	assert.True(t, free.HasFeature(types.FeatureAIAssistant))
	assert.True(t, premium.HasFeature(types.FeatureAIAssistant))
	assert.True(t, pro.HasFeature(types.FeatureAIAssistant))

	assert.False(t, free.HasFeature(types.FeatureCustomThemes))
	assert.True(t, premium.HasFeature(types.FeatureCustomThemes))

	assert.False(t, premium.HasFeature(types.FeatureTeamWorkspaces))
	assert.False(t, premium.HasFeature(types.FeaturePrioritySupport))
	assert.True(t, pro.HasFeature(types.FeatureTeamWorkspaces))
	assert.True(t, pro.HasFeature(types.FeaturePrioritySupport))

	// Limits grow monotonically
	assert.Less(t, free.MaxTeams, premium.MaxTeams)
	assert.Less(t, premium.MaxTeams, pro.MaxTeams)
	assert.Less(t, free.ThemeCount, premium.ThemeCount)
	assert.Less(t, premium.ThemeCount, pro.ThemeCount)
}

func TestCatalogListsAllTiers(t *testing.T) {
	c := NewCatalog()
	assert.Len(t, c.Tiers(), 3)
}
