package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactalia/contactalia-backend/api/controllers"
	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	pkgAuth "github.com/contactalia/contactalia-backend/pkg/auth"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/contactalia/contactalia-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// stubSessions grants roles per account id.
type stubSessions map[uuid.UUID][]enums.AppRole

func (s stubSessions) Load(_ context.Context, claims *pkgAuth.AccessTokenClaims) (auth.Session, error) {
	id, err := claims.UserID()
	if err != nil {
		return auth.Anonymous(), err
	}
	return auth.Session{
		AccountID:     id,
		Roles:         s[id],
		Plan:          "premium_visitante",
		Tier:          enums.PlanTierPremium,
		EffectiveTier: enums.PlanTierPremium,
		Authenticated: true,
	}, nil
}

type stubSubscriptions struct{}

func (stubSubscriptions) Lookup(_ context.Context, userID uuid.UUID) subscriptions.Resolution {
	return subscriptions.Resolve(userID, &models.Subscription{
		UserID: userID,
		Plan:   "vip_visitante",
		Status: enums.SubscriptionStatusActive,
	})
}

func (stubSubscriptions) Apply(context.Context, subscriptions.ApplyInput) (bool, error) {
	return true, nil
}

func (stubSubscriptions) ListActive(context.Context) ([]models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptions) ListDueForReconcile(context.Context, time.Time, int) ([]models.Subscription, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		Auth: config.AuthConfig{JWTSecret: "router-secret", Audience: "authenticated"},
	}
}

func tokenFor(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.Auth, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: userID})
	require.NoError(t, err)
	return token
}

func newTestRouter(cfg *config.Config, sessions stubSessions, ready map[string]controllers.Pinger) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Dependencies{
		Config:        cfg,
		Sessions:      sessions,
		Ready:         ready,
		Gatherer:      reg,
		Metrics:       metrics.NewHTTPMetrics(reg),
		Subscriptions: stubSubscriptions{},
	})
}

func do(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, stubSessions{}, map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}})

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/ready", "").Code)

	down := newTestRouter(cfg, stubSessions{}, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("refused")}})
	assert.Equal(t, http.StatusServiceUnavailable, do(down, http.MethodGet, "/health/ready", "").Code)
}

func TestMetricsEndpointExposesHTTPCounters(t *testing.T) {
	h := newTestRouter(testConfig(), stubSessions{}, nil)
	do(h, http.MethodGet, "/health/live", "")

	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contactalia_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(testConfig(), stubSessions{}, nil)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/favorites", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/subscription", "not-a-jwt").Code)
}

func TestSubscriptionReturnsResolution(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()
	h := newTestRouter(cfg, stubSessions{}, nil)

	rec := do(h, http.MethodGet, "/api/subscription", tokenFor(t, cfg, userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			Plan          string         `json:"plan"`
			EffectiveTier string         `json:"effective_tier"`
			Limits        map[string]any `json:"limits"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "vip_visitante", body.Data.Plan)
	assert.Equal(t, "vip", body.Data.EffectiveTier)
	assert.EqualValues(t, 9999, body.Data.Limits["favorites"])
}

func TestAdminRoutesCheckRoles(t *testing.T) {
	cfg := testConfig()
	user, moderator, admin := uuid.New(), uuid.New(), uuid.New()
	h := newTestRouter(cfg, stubSessions{
		moderator: {enums.AppRoleModerator},
		admin:     {enums.AppRoleAdmin},
	}, nil)

	assert.Equal(t, http.StatusForbidden, do(h, http.MethodGet, "/api/admin/subscriptions", tokenFor(t, cfg, user)).Code)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodGet, "/api/admin/subscriptions", tokenFor(t, cfg, moderator)).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/admin/subscriptions", tokenFor(t, cfg, admin)).Code)
}
