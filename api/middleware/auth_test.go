package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/internal/auth"
	pkgAuth "github.com/contactalia/contactalia-backend/pkg/auth"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

type stubLoader struct {
	roles []enums.AppRole
	err   error
}

func (s stubLoader) Load(_ context.Context, claims *pkgAuth.AccessTokenClaims) (auth.Session, error) {
	if s.err != nil {
		return auth.Anonymous(), s.err
	}
	id, _ := claims.UserID()
	return auth.Session{AccountID: id, Roles: s.roles, Authenticated: true}, nil
}

var testAuthCfg = config.AuthConfig{JWTSecret: "middleware-secret", Audience: "authenticated"}

func mint(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testAuthCfg, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: userID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func captureSession(out *auth.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*out = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthSeedsSession(t *testing.T) {
	userID := uuid.New()
	var got auth.Session
	h := Auth(testAuthCfg, stubLoader{roles: []enums.AppRole{enums.AppRoleModerator}}, nil)(captureSession(&got))

	rec := serve(h, mint(t, userID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got.AccountID != userID || !got.IsStaff() {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	var got auth.Session
	h := Auth(testAuthCfg, stubLoader{}, nil)(captureSession(&got))

	if rec := serve(h, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := serve(h, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestAuthSurfacesLoaderFailure(t *testing.T) {
	var got auth.Session
	loader := stubLoader{err: pkgerrors.New(pkgerrors.CodeDependency, "roles unavailable")}
	h := Auth(testAuthCfg, loader, nil)(captureSession(&got))

	if rec := serve(h, mint(t, uuid.New())); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	got := auth.Session{Authenticated: true}
	h := OptionalAuth(testAuthCfg, stubLoader{}, nil)(captureSession(&got))

	if rec := serve(h, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got.Authenticated {
		t.Fatalf("expected anonymous session")
	}
	if rec := serve(h, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("a bad token must still be rejected, got %d", rec.Code)
	}
}

func TestRequireAdminAndStaff(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	moderator := auth.Session{AccountID: uuid.New(), Roles: []enums.AppRole{enums.AppRoleModerator}, Authenticated: true}

	cases := []struct {
		name    string
		mw      func(http.Handler) http.Handler
		session auth.Session
		want    int
	}{
		{"staff allows moderator", RequireStaff(nil), moderator, http.StatusNoContent},
		{"admin rejects moderator", RequireAdmin(nil), moderator, http.StatusForbidden},
		{"anonymous is unauthorized", RequireStaff(nil), auth.Anonymous(), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(auth.WithSession(req.Context(), tc.session))
			rec := httptest.NewRecorder()
			tc.mw(ok).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5123"
	if got := ClientIP(req); got != "10.0.0.9" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
