package auth

import (
	"context"
	"fmt"

	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	pkgauth "github.com/contactalia/contactalia-backend/pkg/auth"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/google/uuid"
)

type roleLister interface {
	ListRoles(ctx context.Context, userID uuid.UUID) ([]enums.AppRole, error)
}

type planLookup interface {
	Lookup(ctx context.Context, userID uuid.UUID) subscriptions.Resolution
}

// Loader turns verified token claims into a Session.
type Loader struct {
	roles roleLister
	plans planLookup
}

func NewLoader(roles roleLister, plans planLookup) (*Loader, error) {
	if roles == nil {
		return nil, fmt.Errorf("role lister required")
	}
	if plans == nil {
		return nil, fmt.Errorf("plan lookup required")
	}
	return &Loader{roles: roles, plans: plans}, nil
}

// Load resolves roles and the effective plan for the token subject. A role
// lookup failure is returned; the plan lookup degrades to free on its own.
func (l *Loader) Load(ctx context.Context, claims *pkgauth.AccessTokenClaims) (Session, error) {
	if claims == nil {
		return Anonymous(), pkgerrors.New(pkgerrors.CodeUnauthorized, "missing claims")
	}
	userID, err := claims.UserID()
	if err != nil {
		return Anonymous(), pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid subject")
	}

	roles, err := l.roles.ListRoles(ctx, userID)
	if err != nil {
		return Anonymous(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load roles")
	}

	res := l.plans.Lookup(ctx, userID)
	return Session{
		AccountID:     userID,
		Email:         claims.Email,
		Roles:         roles,
		Plan:          res.Plan,
		Tier:          res.Tier,
		EffectiveTier: res.EffectiveTier,
		Authenticated: true,
	}, nil
}
