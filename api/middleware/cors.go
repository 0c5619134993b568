package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS returns middleware that applies the API's allowed origin policy.
// An empty origin list falls back to local dev hosts outside production;
// in production it allows no cross-origin callers at all.
func CORS(origins []string, prod bool) func(http.Handler) http.Handler {
	allowed := origins
	if len(allowed) == 0 && !prod {
		allowed = defaultCORSOrigins
	}
	opts := cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature", "X-Requested-With"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(allowed) == 0 {
		// go-chi/cors treats an empty list as "*".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.New(opts).Handler
}
