package entitlements

import (
	"strings"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

// ParseTier extracts the tier from a stored plan string such as
// "premium_visitante". Anything unrecognised is free.
func ParseTier(raw string) enums.PlanTier {
	plan := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(plan, string(enums.PlanTierVip)):
		return enums.PlanTierVip
	case strings.Contains(plan, string(enums.PlanTierPremium)):
		return enums.PlanTierPremium
	default:
		return enums.PlanTierFree
	}
}

// ParseAudience extracts the audience suffix from a stored plan string.
// It returns an empty audience when the plan carries none.
func ParseAudience(raw string) enums.Audience {
	plan := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(plan, string(enums.AudienceVisitor)):
		return enums.AudienceVisitor
	case strings.Contains(plan, string(enums.AudienceAdvertiser)):
		return enums.AudienceAdvertiser
	default:
		return ""
	}
}

// FormatPlan builds the persisted plan string "<tier>_<audience>", or bare
// "free" for the free tier.
func FormatPlan(tier enums.PlanTier, audience enums.Audience) string {
	if tier != enums.PlanTierPremium && tier != enums.PlanTierVip {
		return string(enums.PlanTierFree)
	}
	if !audience.IsValid() {
		return string(tier)
	}
	return string(tier) + "_" + string(audience)
}
