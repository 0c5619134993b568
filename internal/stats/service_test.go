package stats

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

type fakeStatsRepo struct {
	owners map[uuid.UUID]struct{}
}

func (f fakeStatsRepo) TopCities(context.Context, int) ([]Bucket, error) {
	return []Bucket{{Label: "Madrid", Total: 4}}, nil
}

func (f fakeStatsRepo) TopAccompaniments(context.Context, int) ([]Bucket, error) {
	return nil, nil
}

func (f fakeStatsRepo) StatusTotals(context.Context) ([]Bucket, error) {
	return []Bucket{{Label: "approved", Total: 4}, {Label: "pending", Total: 1}}, nil
}

func (f fakeStatsRepo) ProfileOwners(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		if _, ok := f.owners[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type fakeSubs []models.Subscription

func (f fakeSubs) ListActive(context.Context) ([]models.Subscription, error) {
	return f, nil
}

func defaultPrices(t *testing.T) PriceTable {
	t.Helper()
	prices, err := PricesFromConfig(config.AccountingConfig{
		VisitorPremium:    "19.99",
		VisitorVip:        "39.99",
		AdvertiserPremium: "29.99",
		AdvertiserVip:     "59.99",
	})
	require.NoError(t, err)
	return prices
}

func admin() auth.Session {
	return auth.Session{AccountID: uuid.New(), Authenticated: true, Roles: []enums.AppRole{enums.AppRoleAdmin}}
}

func TestAccountingClassifiesByProfileOwnership(t *testing.T) {
	advertiser := uuid.New()
	visitor := uuid.New()
	mislabelled := uuid.New()

	subs := fakeSubs{
		{UserID: advertiser, Plan: "vip_anunciante", Status: enums.SubscriptionStatusActive},
		{UserID: visitor, Plan: "premium_visitante", Status: enums.SubscriptionStatusActive},
		{UserID: mislabelled, Plan: "premium_anunciante", Status: enums.SubscriptionStatusActive},
		{UserID: uuid.New(), Plan: "free", Status: enums.SubscriptionStatusActive},
	}
	svc, err := NewService(fakeStatsRepo{owners: map[uuid.UUID]struct{}{advertiser: {}}}, subs, defaultPrices(t))
	require.NoError(t, err)

	out, err := svc.Accounting(context.Background(), admin())
	require.NoError(t, err)
	assert.Equal(t, "EUR", out.Currency)
	assert.Equal(t, 3, out.TotalSubscribers)
	assert.True(t, out.TotalRevenue.Equal(decimal.RequireFromString("99.97")), out.TotalRevenue.String())

	byKey := map[string]AccountingLine{}
	for _, line := range out.Lines {
		byKey[string(line.Audience)+"/"+string(line.Tier)] = line
	}
	assert.Equal(t, 2, byKey["visitante/premium"].Subscribers)
	assert.True(t, byKey["visitante/premium"].Revenue.Equal(decimal.RequireFromString("39.98")))
	assert.Equal(t, 1, byKey["anunciante/vip"].Subscribers)
	assert.Equal(t, 0, byKey["anunciante/premium"].Subscribers)
}

func TestAccountingRequiresAdmin(t *testing.T) {
	svc, err := NewService(fakeStatsRepo{}, fakeSubs{}, defaultPrices(t))
	require.NoError(t, err)

	moderator := auth.Session{AccountID: uuid.New(), Authenticated: true, Roles: []enums.AppRole{enums.AppRoleModerator}}
	_, err = svc.Accounting(context.Background(), moderator)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	overview, err := svc.Overview(context.Background(), moderator)
	require.NoError(t, err)
	assert.Equal(t, []Bucket{}, overview.ByAccompaniment)
	assert.Len(t, overview.ByStatus, 2)
}

func TestPricesFromConfigRejectsGarbage(t *testing.T) {
	_, err := PricesFromConfig(config.AccountingConfig{VisitorPremium: "abc", VisitorVip: "1", AdvertiserPremium: "1", AdvertiserVip: "1"})
	require.Error(t, err)
}
