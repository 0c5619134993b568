package subscriptions

import (
	"time"

	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
)

// Resolution is the read model of an account's plan.
type Resolution struct {
	UserID           uuid.UUID
	Plan             string
	Status           enums.SubscriptionStatus
	Tier             enums.PlanTier
	Audience         enums.Audience
	EffectiveTier    enums.PlanTier
	CurrentPeriodEnd *time.Time
}

// FreeResolution is what a missing row, or a failed lookup, resolves to.
func FreeResolution(userID uuid.UUID) Resolution {
	return Resolution{
		UserID:        userID,
		Plan:          string(enums.PlanTierFree),
		Status:        enums.SubscriptionStatusInactive,
		Tier:          enums.PlanTierFree,
		EffectiveTier: enums.PlanTierFree,
	}
}

// Resolve maps a stored row onto a Resolution. A nil row is free.
func Resolve(userID uuid.UUID, sub *models.Subscription) Resolution {
	if sub == nil {
		return FreeResolution(userID)
	}
	res := Resolution{
		UserID:           userID,
		Plan:             sub.Plan,
		Status:           sub.Status,
		Tier:             entitlements.ParseTier(sub.Plan),
		Audience:         entitlements.ParseAudience(sub.Plan),
		EffectiveTier:    enums.PlanTierFree,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
	if sub.Status.GrantsAccess() {
		res.EffectiveTier = res.Tier
	}
	return res
}

// Active reports whether the stored status is active.
func (r Resolution) Active() bool {
	return r.Status.GrantsAccess()
}

// FavoritesLimit is the favorites cap for the effective tier.
func (r Resolution) FavoritesLimit() int {
	return entitlements.Lookup(r.Audience, r.EffectiveTier).FavoritesLimit
}

// MediaPlan is the upload quota row for the effective tier.
func (r Resolution) MediaPlan() entitlements.Plan {
	return entitlements.MediaPlan(r.EffectiveTier)
}
