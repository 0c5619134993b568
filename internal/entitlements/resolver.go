package entitlements

import (
	"fmt"

	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

type Reason string

const (
	ReasonUpgradeRequired   Reason = "upgrade_required"
	ReasonQuotaExceeded     Reason = "quota_exceeded"
	ReasonFavoritesLimit    Reason = "favorites_limit_reached"
	ReasonInvalidVisibility Reason = "invalid_visibility"
)

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed      bool
	Reason       Reason
	RequiredTier enums.PlanTier
	Limit        int
}

// Allow is the zero-reason positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Err converts a denial into a typed API error. Allowed decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	details := map[string]any{"reason": string(d.Reason)}
	var msg string
	switch d.Reason {
	case ReasonUpgradeRequired:
		details["required_tier"] = string(d.RequiredTier)
		msg = fmt.Sprintf("plan upgrade required: %s", d.RequiredTier)
	case ReasonQuotaExceeded:
		details["limit"] = d.Limit
		msg = fmt.Sprintf("quota exceeded: limit %d", d.Limit)
	case ReasonFavoritesLimit:
		details["limit"] = d.Limit
		msg = "favorites limit reached"
	default:
		msg = "visibility not allowed"
	}
	return pkgerrors.New(pkgerrors.CodeEntitlement, msg).WithDetails(details)
}

// CanSetVisibility checks whether an advertiser on tier may place one more
// item of mediaType under target, given the current counts.
func CanSetVisibility(tier enums.PlanTier, mediaType enums.MediaType, target enums.MediaVisibility, counts Counts) Decision {
	return MediaPlan(tier).CanSetVisibility(mediaType, target, counts)
}

// CanSetVisibility applies the capability flag first and the bucket cap second.
func (p Plan) CanSetVisibility(mediaType enums.MediaType, target enums.MediaVisibility, counts Counts) Decision {
	if !target.IsValid() || !mediaType.IsValid() {
		return Decision{Reason: ReasonInvalidVisibility}
	}
	if !p.CanAssign(target) {
		return Decision{Reason: ReasonUpgradeRequired, RequiredTier: requiredTier(target)}
	}
	limit := p.Limit(mediaType, BucketFor(target))
	if counts.Get(mediaType, BucketFor(target)) >= limit {
		return Decision{Reason: ReasonQuotaExceeded, Limit: limit}
	}
	return Allow()
}

func requiredTier(target enums.MediaVisibility) enums.PlanTier {
	if target == enums.MediaVisibilityVip {
		return enums.PlanTierVip
	}
	return enums.PlanTierPremium
}

// Viewer is what the resolver needs to know about whoever is looking.
type Viewer struct {
	Authenticated bool
	EffectiveTier enums.PlanTier
}

// CanView reports whether the viewer may receive an item with visibility v.
func CanView(viewer Viewer, v enums.MediaVisibility) bool {
	switch v {
	case enums.MediaVisibilityPublic:
		return true
	case enums.MediaVisibilityRegistered:
		return viewer.Authenticated
	case enums.MediaVisibilityPaid:
		return viewer.Authenticated &&
			(viewer.EffectiveTier == enums.PlanTierPremium || viewer.EffectiveTier == enums.PlanTierVip)
	case enums.MediaVisibilityVip:
		return viewer.Authenticated && viewer.EffectiveTier == enums.PlanTierVip
	default:
		return false
	}
}

// HiddenSummary counts what a viewer was not allowed to see.
type HiddenSummary struct {
	Total        int                           `json:"total"`
	ByVisibility map[enums.MediaVisibility]int `json:"by_visibility"`
}

// FilterGallery splits items into the visible slice and a count-only summary
// of the withheld ones. Withheld items are dropped entirely.
func FilterGallery[T any](viewer Viewer, items []T, visibilityOf func(T) enums.MediaVisibility) ([]T, HiddenSummary) {
	visible := make([]T, 0, len(items))
	hidden := HiddenSummary{ByVisibility: map[enums.MediaVisibility]int{}}
	for _, item := range items {
		v := visibilityOf(item)
		if CanView(viewer, v) {
			visible = append(visible, item)
			continue
		}
		hidden.Total++
		hidden.ByVisibility[v]++
	}
	return visible, hidden
}
