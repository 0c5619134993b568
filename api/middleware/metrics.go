package middleware

import (
	"net/http"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/metrics"
)

// Metrics observes every request under its chi route pattern so ids in
// the path do not explode label cardinality.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			m.Observe(routePattern(r, "unmatched"), r.Method, rec.statusCode(), time.Since(start))
		})
	}
}
