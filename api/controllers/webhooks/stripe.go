package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/contactalia/contactalia-backend/api/responses"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type StripeWebhookService interface {
	Verify(payload []byte, signature string) (*stripe.Event, error)
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// StripeWebhook verifies and applies Stripe subscription lifecycle events.
// Redeliveries of an event id already processed are acknowledged as is.
func StripeWebhook(svc StripeWebhookService, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook not wired"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		event, err := svc.Verify(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}

		seen, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if seen {
			if logg != nil {
				logg.Info(ctx, "stripe.webhook.duplicate")
			}
			responses.WriteRaw(w, http.StatusOK, receivedResponse{Received: true})
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			if relErr := guard.Release(ctx, event.ID); relErr != nil && logg != nil {
				logg.Error(ctx, "stripe.webhook.release_failed", relErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "stripe.webhook.processed")
		}
		responses.WriteRaw(w, http.StatusOK, receivedResponse{Received: true})
	}
}
