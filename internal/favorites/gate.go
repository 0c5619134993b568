package favorites

import "github.com/contactalia/contactalia-backend/internal/entitlements"

// CanAdd reports whether one more favorite fits under limit.
func CanAdd(count, limit int) bool {
	return count < limit
}

// Decide wraps CanAdd in a resolver decision.
func Decide(count, limit int) entitlements.Decision {
	if CanAdd(count, limit) {
		return entitlements.Allow()
	}
	return entitlements.Decision{Reason: entitlements.ReasonFavoritesLimit, Limit: limit}
}
