package subscriptions

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/db"
	"github.com/contactalia/contactalia-backend/pkg/db/dbtest"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubPlanWriter struct {
	calls map[uuid.UUID]string
}

func (s *stubPlanWriter) UpdatePublicPlanWithTx(_ *gorm.DB, userID uuid.UUID, plan string) error {
	if s.calls == nil {
		s.calls = map[uuid.UUID]string{}
	}
	s.calls[userID] = plan
	return nil
}

type failingRepo struct{ Repository }

func (failingRepo) FindByUser(context.Context, uuid.UUID) (*models.Subscription, error) {
	return nil, errors.New("connection reset")
}

func newTestService(t *testing.T) (Service, Repository, *stubPlanWriter) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	writer := &stubPlanWriter{}
	svc, err := NewService(ServiceParams{
		Repo:              repo,
		Profiles:          writer,
		TransactionRunner: db.Wrap(conn),
		Logger:            logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, repo, writer
}

func TestLookupNoRowIsFree(t *testing.T) {
	svc, _, _ := newTestService(t)
	res := svc.Lookup(context.Background(), uuid.New())
	assert.Equal(t, "free", res.Plan)
	assert.Equal(t, enums.SubscriptionStatusInactive, res.Status)
	assert.Equal(t, enums.PlanTierFree, res.EffectiveTier)
	assert.Equal(t, 0, res.FavoritesLimit())
}

func TestLookupInactiveIsFree(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Apply(ctx, ApplyInput{UserID: userID, Plan: "vip_visitante", Status: enums.SubscriptionStatusPastDue})
	require.NoError(t, err)

	res := svc.Lookup(ctx, userID)
	assert.Equal(t, enums.PlanTierVip, res.Tier)
	assert.Equal(t, enums.PlanTierFree, res.EffectiveTier)
}

func TestLookupSuffixedPlanResolvesTier(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Apply(ctx, ApplyInput{UserID: userID, Plan: "premium_visitante", Status: enums.SubscriptionStatusActive})
	require.NoError(t, err)

	res := svc.Lookup(ctx, userID)
	assert.Equal(t, enums.PlanTierPremium, res.EffectiveTier)
	assert.Equal(t, enums.AudienceVisitor, res.Audience)
	assert.Equal(t, 50, res.FavoritesLimit())
}

func TestLookupStoreErrorFailsClosed(t *testing.T) {
	buf := &bytes.Buffer{}
	svc, err := NewService(ServiceParams{
		Repo:              failingRepo{},
		Profiles:          &stubPlanWriter{},
		TransactionRunner: db.Wrap(dbtest.Open(t)),
		Logger:            logger.New(logger.Options{ServiceName: "test", Output: buf}),
	})
	require.NoError(t, err)

	res := svc.Lookup(context.Background(), uuid.New())
	assert.Equal(t, enums.PlanTierFree, res.EffectiveTier)
	assert.Contains(t, buf.String(), "subscription.lookup.failed")
}

func TestApplyOutOfOrderEventsConverge(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	created := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	deleted := created.Add(10 * time.Minute)

	inOrder, _, _ := newTestService(t)
	_, err := inOrder.Apply(ctx, ApplyInput{UserID: userID, Plan: "vip_anunciante", Status: enums.SubscriptionStatusActive, EventTime: created})
	require.NoError(t, err)
	_, err = inOrder.Apply(ctx, ApplyInput{UserID: userID, Plan: "free", Status: enums.SubscriptionStatusInactive, EventTime: deleted})
	require.NoError(t, err)

	reversed, _, writer := newTestService(t)
	_, err = reversed.Apply(ctx, ApplyInput{UserID: userID, Plan: "free", Status: enums.SubscriptionStatusInactive, EventTime: deleted})
	require.NoError(t, err)
	applied, err := reversed.Apply(ctx, ApplyInput{UserID: userID, Plan: "vip_anunciante", Status: enums.SubscriptionStatusActive, EventTime: created})
	require.NoError(t, err)
	assert.False(t, applied)

	a := inOrder.Lookup(ctx, userID)
	b := reversed.Lookup(ctx, userID)
	assert.Equal(t, a.Plan, b.Plan)
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, "free", writer.calls[userID])
}

func TestApplyMirrorsEffectiveTierToProfile(t *testing.T) {
	svc, _, writer := newTestService(t)
	userID := uuid.New()

	_, err := svc.Apply(context.Background(), ApplyInput{UserID: userID, Plan: "vip_anunciante", Status: enums.SubscriptionStatusActive})
	require.NoError(t, err)
	assert.Equal(t, "vip", writer.calls[userID])
}

func TestApplyValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Apply(context.Background(), ApplyInput{Plan: "premium", Status: enums.SubscriptionStatusActive})
	require.Error(t, err)

	_, err = svc.Apply(context.Background(), ApplyInput{UserID: uuid.New(), Status: "trialing"})
	require.Error(t, err)
}

func TestPlanFromMetadata(t *testing.T) {
	cases := []struct{ plan, kind, want string }{
		{"", "", "premium"},
		{"vip", "anunciante", "vip_anunciante"},
		{"premium", "visitante", "premium_visitante"},
		{"premium", "hacker", "premium"},
		{"gold", "visitante", "free"},
	}
	for _, tc := range cases {
		if got := PlanFromMetadata(tc.plan, tc.kind); got != tc.want {
			t.Errorf("PlanFromMetadata(%q,%q) = %q, want %q", tc.plan, tc.kind, got, tc.want)
		}
	}
}
