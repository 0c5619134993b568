package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/api/responses"
	"github.com/contactalia/contactalia-backend/api/validators"
	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

type subscriptionResponse struct {
	Plan             string                   `json:"plan"`
	Status           enums.SubscriptionStatus `json:"status"`
	Tier             enums.PlanTier           `json:"tier"`
	Audience         enums.Audience           `json:"audience,omitempty"`
	EffectiveTier    enums.PlanTier           `json:"effective_tier"`
	CurrentPeriodEnd *time.Time               `json:"current_period_end,omitempty"`
	Limits           map[string]any           `json:"limits"`
}

// SubscriptionCurrent returns the caller's resolved plan and its limits.
func SubscriptionCurrent(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		if !session.Authenticated {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		res := svc.Lookup(r.Context(), session.AccountID)
		responses.WriteSuccess(w, subscriptionResponse{
			Plan:             res.Plan,
			Status:           res.Status,
			Tier:             res.Tier,
			Audience:         res.Audience,
			EffectiveTier:    res.EffectiveTier,
			CurrentPeriodEnd: res.CurrentPeriodEnd,
			Limits:           subscriptions.DescribeLimits(res),
		})
	}
}

type adminSubscriptionDTO struct {
	UserID               uuid.UUID                `json:"user_id"`
	Plan                 string                   `json:"plan"`
	Status               enums.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd     *time.Time               `json:"current_period_end,omitempty"`
	StripeCustomerID     *string                  `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string                  `json:"stripe_subscription_id,omitempty"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

func adminSubscriptionFromModel(m models.Subscription) adminSubscriptionDTO {
	return adminSubscriptionDTO{
		UserID:               m.UserID,
		Plan:                 m.Plan,
		Status:               m.Status,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		UpdatedAt:            m.UpdatedAt,
	}
}

func AdminSubscriptionsList(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]adminSubscriptionDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, adminSubscriptionFromModel(row))
		}
		responses.WriteSuccess(w, map[string]any{"items": out})
	}
}

type adminSubscriptionRequest struct {
	Plan             string     `json:"plan" validate:"required,oneof=free premium_anunciante premium_visitante vip_anunciante vip_visitante"`
	Status           string     `json:"status" validate:"required,oneof=active inactive"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// AdminSubscriptionOverride writes a subscription through the same
// last-write-wins upsert the payment flows use, stamped with now.
func AdminSubscriptionOverride(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.PathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adminSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session := auth.FromContext(r.Context())
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "override_by", session.AccountID.String())
		}
		if _, err := svc.Apply(ctx, subscriptions.ApplyInput{
			UserID:           userID,
			Plan:             req.Plan,
			Status:           enums.SubscriptionStatus(req.Status),
			CurrentPeriodEnd: req.CurrentPeriodEnd,
			EventTime:        time.Now(),
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		res := svc.Lookup(ctx, userID)
		responses.WriteSuccess(w, subscriptionResponse{
			Plan:             res.Plan,
			Status:           res.Status,
			Tier:             res.Tier,
			Audience:         res.Audience,
			EffectiveTier:    res.EffectiveTier,
			CurrentPeriodEnd: res.CurrentPeriodEnd,
			Limits:           subscriptions.DescribeLimits(res),
		})
	}
}
