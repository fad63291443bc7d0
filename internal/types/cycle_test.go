package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCycleKeyFor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want CycleKey
	}{
		{
			name: "mid month",
			in:   time.Date(2026, time.September, 14, 10, 0, 0, 0, time.UTC),
			want: "2026-09",
		},
		{
			name: "first instant of month",
			in:   time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
			want: "2026-10",
		},
		{
			name: "last instant of month",
			in:   time.Date(2026, time.September, 30, 23, 59, 59, 0, time.UTC),
			want: "2026-09",
		},
		{
			name: "non utc time normalized to utc",
			in:   time.Date(2026, time.October, 1, 3, 0, 0, 0, time.FixedZone("IST", 5*60*60)),
			want: "2026-09",
		},
		{
			name: "year boundary",
			in:   time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC),
			want: "2026-12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CycleKeyFor(tt.in))
		})
	}
}

func TestCycleStart(t *testing.T) {
	start, err := CycleKey("2026-09").CycleStart()
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), start)

	_, err = CycleKey("not-a-cycle").CycleStart()
	assert.Error(t, err)
}

func TestLifecycleStateFor(t *testing.T) {
	now := time.Date(2026, time.September, 14, 12, 0, 0, 0, time.UTC)
	in48h := now.Add(48 * time.Hour)
	in96h := now.Add(96 * time.Hour)
	past := now.Add(-time.Minute)

	tests := []struct {
		name      string
		tier      Tier
		expiresAt *time.Time
		want      LifecycleState
	}{
		{name: "free tier", tier: TierFree, want: LifecycleStateFree},
		{name: "paid without expiry", tier: TierPro, want: LifecycleStateActive},
		{name: "paid expiring beyond window", tier: TierPremium, expiresAt: &in96h, want: LifecycleStateActive},
		{name: "paid inside expiring window", tier: TierPremium, expiresAt: &in48h, want: LifecycleStateExpiringSoon},
		{name: "paid past expiry", tier: TierPro, expiresAt: &past, want: LifecycleStateExpired},
		{name: "paid expiring exactly now", tier: TierPro, expiresAt: &now, want: LifecycleStateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LifecycleStateFor(tt.tier, tt.expiresAt, now))
		})
	}
}
