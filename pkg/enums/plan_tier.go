package enums

import "fmt"

// PlanTier is the commercial tier of a subscription plan.
type PlanTier string

const (
	PlanTierFree    PlanTier = "free"
	PlanTierPremium PlanTier = "premium"
	PlanTierVip     PlanTier = "vip"
)

var validPlanTiers = []PlanTier{
	PlanTierFree,
	PlanTierPremium,
	PlanTierVip,
}

// String implements fmt.Stringer.
func (s PlanTier) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PlanTier) IsValid() bool {
	for _, candidate := range validPlanTiers {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePlanTier converts raw input into a PlanTier.
func ParsePlanTier(value string) (PlanTier, error) {
	for _, candidate := range validPlanTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan tier %q", value)
}

// Rank orders tiers so callers can compare them; unknown tiers rank as free.
func (s PlanTier) Rank() int {
	switch s {
	case PlanTierVip:
		return 2
	case PlanTierPremium:
		return 1
	default:
		return 0
	}
}
