package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/profiles"
	"github.com/contactalia/contactalia-backend/pkg/db/dbtest"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingLimiter struct {
	counts map[string]int64
	err    error
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if c.err != nil {
		return false, 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func setup(t *testing.T, limiter RateLimiter, limit int) (*gorm.DB, Service, time.Time) {
	t.Helper()
	conn := dbtest.Open(t)
	now := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Profiles: profiles.NewRepository(conn),
		Limiter:  limiter,
		Limit:    limit,
		Window:   time.Hour,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	return conn, svc, now
}

func seedProfile(t *testing.T, conn *gorm.DB) models.Profile {
	t.Helper()
	p := models.Profile{UserID: uuid.New(), Name: "Carla", City: "Malaga", Status: enums.ProfileStatusApproved}
	require.NoError(t, conn.Create(&p).Error)
	return p
}

func visitor() auth.Session {
	return auth.Session{AccountID: uuid.New(), Authenticated: true}
}

func staff() auth.Session {
	return auth.Session{AccountID: uuid.New(), Authenticated: true, Roles: []enums.AppRole{enums.AppRoleAdmin}}
}

func TestCreateDefaultsReasonToSpam(t *testing.T) {
	conn, svc, _ := setup(t, nil, 0)
	profile := seedProfile(t, conn)

	report, err := svc.Create(context.Background(), visitor(), profile.ID, CreateInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportReasonSpam, report.Reason)
	assert.Equal(t, enums.ReportStatusPending, report.Status)
}

func TestCreateRejectsOwnProfile(t *testing.T) {
	conn, svc, _ := setup(t, nil, 0)
	profile := seedProfile(t, conn)
	self := auth.Session{AccountID: profile.UserID, Authenticated: true}

	_, err := svc.Create(context.Background(), self, profile.ID, CreateInput{Reason: "fake"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCreateValidatesReasonAndProfile(t *testing.T) {
	conn, svc, _ := setup(t, nil, 0)
	profile := seedProfile(t, conn)

	_, err := svc.Create(context.Background(), visitor(), profile.ID, CreateInput{Reason: "boring"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), visitor(), uuid.New(), CreateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Create(context.Background(), auth.Anonymous(), profile.ID, CreateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestCreateIsRateLimitedPerReporter(t *testing.T) {
	conn, svc, _ := setup(t, &countingLimiter{}, 2)
	profile := seedProfile(t, conn)
	reporter := visitor()

	for i := 0; i < 2; i++ {
		_, err := svc.Create(context.Background(), reporter, profile.ID, CreateInput{Reason: "scam"})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), reporter, profile.ID, CreateInput{Reason: "scam"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit))

	_, err = svc.Create(context.Background(), visitor(), profile.ID, CreateInput{})
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.Report{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestCreateFailsOpenWhenLimiterIsDown(t *testing.T) {
	conn, svc, _ := setup(t, &countingLimiter{err: errors.New("redis down")}, 1)
	profile := seedProfile(t, conn)

	_, err := svc.Create(context.Background(), visitor(), profile.ID, CreateInput{})
	require.NoError(t, err)
}

func TestReviewStampsReviewer(t *testing.T) {
	conn, svc, now := setup(t, nil, 0)
	profile := seedProfile(t, conn)
	report, err := svc.Create(context.Background(), visitor(), profile.ID, CreateInput{})
	require.NoError(t, err)

	admin := staff()
	reviewed, err := svc.Review(context.Background(), admin, report.ID, ReviewInput{Status: "resolved"})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusResolved, reviewed.Status)

	var stored models.Report
	require.NoError(t, conn.First(&stored, "id = ?", report.ID).Error)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, admin.AccountID, *stored.ReviewedBy)
	require.NotNil(t, stored.ReviewedAt)
	assert.True(t, stored.ReviewedAt.Equal(now))

	_, err = svc.Review(context.Background(), visitor(), report.ID, ReviewInput{Status: "resolved"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Review(context.Background(), admin, uuid.New(), ReviewInput{Status: "resolved"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersByStatus(t *testing.T) {
	conn, svc, _ := setup(t, nil, 0)
	profile := seedProfile(t, conn)
	first, err := svc.Create(context.Background(), visitor(), profile.ID, CreateInput{})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), visitor(), profile.ID, CreateInput{Reason: "underage"})
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), staff(), first.ID, ReviewInput{Status: "dismissed"})
	require.NoError(t, err)

	pending, err := svc.List(context.Background(), staff(), "pending", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, enums.ReportReasonUnderage, pending.Items[0].Reason)

	all, err := svc.List(context.Background(), staff(), "", pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
