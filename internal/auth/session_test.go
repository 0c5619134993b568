package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	pkgauth "github.com/contactalia/contactalia-backend/pkg/auth"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/google/uuid"
)

type stubRoles struct {
	roles []enums.AppRole
	err   error
}

func (s stubRoles) ListRoles(context.Context, uuid.UUID) ([]enums.AppRole, error) {
	return s.roles, s.err
}

type stubPlans struct{ res subscriptions.Resolution }

func (s stubPlans) Lookup(_ context.Context, userID uuid.UUID) subscriptions.Resolution {
	res := s.res
	res.UserID = userID
	return res
}

func claimsFor(t *testing.T, userID uuid.UUID) *pkgauth.AccessTokenClaims {
	t.Helper()
	cfg := config.AuthConfig{JWTSecret: "secret"}
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), time.Hour, pkgauth.AccessTokenPayload{UserID: userID, Email: "a@b.es"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return claims
}

func TestLoaderBuildsSession(t *testing.T) {
	userID := uuid.New()
	loader, err := NewLoader(
		stubRoles{roles: []enums.AppRole{enums.AppRoleModerator}},
		stubPlans{res: subscriptions.Resolution{Plan: "vip_visitante", Tier: enums.PlanTierVip, EffectiveTier: enums.PlanTierVip}},
	)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	s, err := loader.Load(context.Background(), claimsFor(t, userID))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !s.Authenticated || s.AccountID != userID {
		t.Fatalf("unexpected session %+v", s)
	}
	if !s.IsStaff() || s.IsAdmin() {
		t.Fatalf("moderator should be staff but not admin")
	}
	if v := s.Viewer(); !v.Authenticated || v.EffectiveTier != enums.PlanTierVip {
		t.Fatalf("unexpected viewer %+v", v)
	}
}

func TestLoaderRoleFailureIsDependencyError(t *testing.T) {
	loader, _ := NewLoader(stubRoles{err: errors.New("db down")}, stubPlans{})
	_, err := loader.Load(context.Background(), claimsFor(t, uuid.New()))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestAnonymousSession(t *testing.T) {
	s := FromContext(context.Background())
	if s.Authenticated || s.IsStaff() || s.Owns(uuid.New()) {
		t.Fatalf("anonymous session must grant nothing: %+v", s)
	}
	forged := Session{Roles: []enums.AppRole{enums.AppRoleAdmin}, EffectiveTier: enums.PlanTierVip}
	if forged.IsAdmin() || forged.Viewer().Authenticated {
		t.Fatal("unauthenticated sessions must not carry roles or tiers")
	}
}

func TestSessionRoundTripsThroughContext(t *testing.T) {
	want := Session{AccountID: uuid.New(), Authenticated: true}
	got := FromContext(WithSession(context.Background(), want))
	if got.AccountID != want.AccountID || !got.Authenticated {
		t.Fatalf("session not preserved: %+v", got)
	}
}
