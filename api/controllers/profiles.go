package controllers

import (
	"net/http"
	"strings"

	"github.com/contactalia/contactalia-backend/api/middleware"
	"github.com/contactalia/contactalia-backend/api/responses"
	"github.com/contactalia/contactalia-backend/api/validators"
	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/profiles"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

// ProfileUpsertOwn creates or updates the caller's profile.
func ProfileUpsertOwn(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input profiles.UpsertInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, created, err := svc.UpsertOwn(r.Context(), auth.FromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, profile)
	}
}

func ProfileGetOwn(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.GetOwn(r.Context(), auth.FromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// ProfileList is the public listing of approved profiles.
func ProfileList(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		filters := profiles.PublicFilters{
			City:     validators.SanitizeString(q.Get("city"), 120),
			Category: validators.SanitizeString(q.Get("category"), 40),
			Zone:     validators.SanitizeString(q.Get("zone"), 120),
		}
		result, err := svc.ListPublic(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProfileDetail returns one profile with the gallery filtered for the caller.
func ProfileDetail(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "profileId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session := auth.FromContext(r.Context())
		detail, err := svc.GetForViewer(r.Context(), session, id, viewerKey(r, session))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// viewerKey identifies a viewer for view-count dedup: the account when
// signed in, otherwise the client address.
func viewerKey(r *http.Request, session auth.Session) string {
	if session.Authenticated {
		return "user:" + session.AccountID.String()
	}
	return "ip:" + strings.ToLower(middleware.ClientIP(r))
}
