package types

import (
	"time"
)

// CycleKey identifies a single billing cycle. Cycles are calendar months in
// UTC, so the key for 2026-09-14T10:00:00Z is "2026-09". Monthly allotments
// are applied exactly once per key.
type CycleKey string

// CycleKeyFor returns the billing cycle key containing t
func CycleKeyFor(t time.Time) CycleKey {
	return CycleKey(t.UTC().Format("2006-01"))
}

func (c CycleKey) String() string {
	return string(c)
}

// CycleStart returns the first instant of the cycle
func (c CycleKey) CycleStart() (time.Time, error) {
	return time.Parse("2006-01", string(c))
}

// ExpiringSoonWindow is how far ahead of expiry an account is reported as
// expiring_soon
const ExpiringSoonWindow = 72 * time.Hour

// LifecycleStateFor derives the lifecycle state of an account from its tier
// and expiry relative to now. Only the sweeper persists the downgrade; reads
// use this to avoid being stale-favorable to the user.
func LifecycleStateFor(tier Tier, expiresAt *time.Time, now time.Time) LifecycleState {
	if !tier.IsPaid() {
		return LifecycleStateFree
	}
	if expiresAt == nil {
		return LifecycleStateActive
	}
	switch {
	case !expiresAt.After(now):
		return LifecycleStateExpired
	case expiresAt.Sub(now) <= ExpiringSoonWindow:
		return LifecycleStateExpiringSoon
	default:
		return LifecycleStateActive
	}
}
