package auth

import (
	"context"

	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
)

// Session is the request-scoped view of who is calling and what they hold.
type Session struct {
	AccountID     uuid.UUID
	Email         string
	Roles         []enums.AppRole
	Plan          string
	Tier          enums.PlanTier
	EffectiveTier enums.PlanTier
	Authenticated bool
}

// Anonymous is the session of an unauthenticated caller.
func Anonymous() Session {
	return Session{Tier: enums.PlanTierFree, EffectiveTier: enums.PlanTierFree}
}

func (s Session) HasRole(role enums.AppRole) bool {
	if !s.Authenticated {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s Session) IsAdmin() bool { return s.HasRole(enums.AppRoleAdmin) }

// IsStaff reports admin or moderator grants.
func (s Session) IsStaff() bool {
	return s.HasRole(enums.AppRoleAdmin) || s.HasRole(enums.AppRoleModerator)
}

// Owns reports whether the session belongs to the given account.
func (s Session) Owns(userID uuid.UUID) bool {
	return s.Authenticated && userID != uuid.Nil && s.AccountID == userID
}

// Viewer projects the session onto the entitlement resolver's input.
func (s Session) Viewer() entitlements.Viewer {
	if !s.Authenticated {
		return entitlements.Viewer{EffectiveTier: enums.PlanTierFree}
	}
	return entitlements.Viewer{Authenticated: true, EffectiveTier: s.EffectiveTier}
}

type ctxKey struct{}

// WithSession stores the session on the context.
func WithSession(ctx context.Context, s Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the stored session, or Anonymous when none was set.
func FromContext(ctx context.Context) Session {
	if ctx == nil {
		return Anonymous()
	}
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Anonymous()
}
