package controllers

import (
	"net/http"

	"github.com/contactalia/contactalia-backend/api/responses"
	"github.com/contactalia/contactalia-backend/api/validators"
	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/checkout"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

// CheckoutCreate opens a Stripe Checkout Session and returns {url}.
func CheckoutCreate(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input checkout.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Create(r.Context(), auth.FromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteRaw(w, http.StatusOK, out)
	}
}

// CheckoutSync applies a completed session and returns {ok, plan}.
func CheckoutSync(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input checkout.SyncInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Sync(r.Context(), auth.FromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteRaw(w, http.StatusOK, out)
	}
}
