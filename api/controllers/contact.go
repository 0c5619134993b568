package controllers

import (
	"net/http"
	"strings"

	"github.com/contactalia/contactalia-backend/api/middleware"
	"github.com/contactalia/contactalia-backend/api/responses"
	"github.com/contactalia/contactalia-backend/api/validators"
	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/contact"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

// ContactSubmit is the public contact form.
func ContactSubmit(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input contact.SubmitInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Submit(r.Context(), middleware.ClientIP(r), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

func AdminContactList(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		result, err := svc.List(r.Context(), auth.FromContext(r.Context()), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminContactUpdate(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "submissionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input contact.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Update(r.Context(), auth.FromContext(r.Context()), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
