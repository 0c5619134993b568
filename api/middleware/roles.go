package middleware

import (
	"net/http"

	"github.com/contactalia/contactalia-backend/api/responses"
	"github.com/contactalia/contactalia-backend/internal/auth"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

// RequireStaff admits admins and moderators.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireSession(logg, "staff role required", auth.Session.IsStaff)
}

// RequireAdmin admits admins only.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireSession(logg, "admin role required", auth.Session.IsAdmin)
}

func requireSession(logg *logger.Logger, msg string, allowed func(auth.Session) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := auth.FromContext(r.Context())
			if !session.Authenticated {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !allowed(session) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
