package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
)

type fakeReconcileStore struct {
	due     []models.Subscription
	applied []subscriptions.ApplyInput
}

func (f *fakeReconcileStore) ListDueForReconcile(context.Context, time.Time, int) ([]models.Subscription, error) {
	return f.due, nil
}

func (f *fakeReconcileStore) Apply(_ context.Context, input subscriptions.ApplyInput) (bool, error) {
	f.applied = append(f.applied, input)
	return true, nil
}

type fakeStripeSubs map[string]*stripe.Subscription

func (f fakeStripeSubs) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	sub, ok := f[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func strPtr(v string) *string { return &v }

func TestSubscriptionReconcileReappliesStripeState(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	renewed := uuid.New()
	canceled := uuid.New()
	store := &fakeReconcileStore{due: []models.Subscription{
		{UserID: renewed, Plan: "vip_visitante", StripeSubscriptionID: strPtr("sub_renewed"), StripeCustomerID: strPtr("cus_1")},
		{UserID: canceled, Plan: "premium_anunciante", StripeSubscriptionID: strPtr("sub_canceled")},
		{UserID: uuid.New(), Plan: "premium_visitante", StripeSubscriptionID: strPtr("sub_gone")},
		{UserID: uuid.New(), Plan: "premium_visitante"},
	}}
	remote := fakeStripeSubs{
		"sub_renewed": {
			ID:     "sub_renewed",
			Status: stripe.SubscriptionStatusActive,
			Items:  &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{CurrentPeriodEnd: now.Add(30 * 24 * time.Hour).Unix()}}},
		},
		"sub_canceled": {ID: "sub_canceled", Status: stripe.SubscriptionStatusCanceled},
	}
	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:        testLogger(),
		Subscriptions: store,
		Stripe:        remote,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub_gone")

	require.Len(t, store.applied, 2)
	first := store.applied[0]
	assert.Equal(t, renewed, first.UserID)
	assert.Equal(t, "vip_visitante", first.Plan)
	assert.Equal(t, enums.SubscriptionStatusActive, first.Status)
	assert.Equal(t, "cus_1", first.StripeCustomerID)
	require.NotNil(t, first.CurrentPeriodEnd)
	assert.True(t, first.CurrentPeriodEnd.After(now))
	assert.Equal(t, now, first.EventTime)

	second := store.applied[1]
	assert.Equal(t, canceled, second.UserID)
	assert.Equal(t, enums.SubscriptionStatusInactive, second.Status)
}
