package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/contactalia/contactalia-backend/api/responses"
	"github.com/contactalia/contactalia-backend/internal/auth"
	pkgAuth "github.com/contactalia/contactalia-backend/pkg/auth"
	"github.com/contactalia/contactalia-backend/pkg/config"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

// SessionLoader resolves roles and plan for verified claims.
type SessionLoader interface {
	Load(ctx context.Context, claims *pkgAuth.AccessTokenClaims) (auth.Session, error)
}

// Auth requires a valid bearer token and seeds the request context with
// the caller's session.
func Auth(cfg config.AuthConfig, loader SessionLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, loader, logg, true)
}

// OptionalAuth accepts anonymous requests. A token that is present but
// invalid is still rejected.
func OptionalAuth(cfg config.AuthConfig, loader SessionLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, loader, logg, false)
}

func authenticate(cfg config.AuthConfig, loader SessionLoader, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), auth.Anonymous())))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			session, err := loader.Load(r.Context(), claims)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := auth.WithSession(r.Context(), session)
			if logg != nil {
				ctx = logg.WithUserID(ctx, session.AccountID.String())
				if len(session.Roles) > 0 {
					ctx = logg.WithActorRole(ctx, string(session.Roles[0]))
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
