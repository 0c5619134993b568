package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/logger"
)

// Logging emits request.start and request.complete around every request.
// Probe traffic under /health is only logged when it fails.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			probe := strings.HasPrefix(r.URL.Path, "/health/")
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":    r.Method,
				"path":      r.URL.Path,
				"client_ip": ClientIP(r),
			})
			if !probe {
				logg.Info(ctx, "request.start")
			}

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			if probe && status < http.StatusInternalServerError {
				return
			}
			fields := map[string]any{
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if route := routePattern(r, ""); route != "" {
				fields["route"] = route
			}
			ctx = logg.WithFields(ctx, fields)
			if status >= http.StatusInternalServerError {
				logg.Warn(ctx, "request.complete")
				return
			}
			logg.Info(ctx, "request.complete")
		})
	}
}
