package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

type subscriptionApplier interface {
	Apply(ctx context.Context, input subscriptions.ApplyInput) (bool, error)
}

// SubscriptionFetcher loads the subscription behind a completed checkout.
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type ServiceParams struct {
	Subscriptions subscriptionApplier
	// Fetcher is optional; without it checkout completions carry no period end.
	Fetcher       SubscriptionFetcher
	SigningSecret string
	Logger        *logger.Logger
}

// Service verifies Stripe deliveries and maps them onto subscription writes.
type Service struct {
	subs    subscriptionApplier
	fetcher SubscriptionFetcher
	secret  string
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	return &Service{
		subs:    params.Subscriptions,
		fetcher: params.Fetcher,
		secret:  strings.TrimSpace(params.SigningSecret),
		logg:    params.Logger,
	}, nil
}

// Verify checks the Stripe-Signature header and decodes the event. Nothing
// is written before this succeeds.
func (s *Service) Verify(payload []byte, signature string) (*stripe.Event, error) {
	if s.secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "missing Stripe webhook secret: set CONTACTALIA_STRIPE_WEBHOOK_SECRET")
	}
	if strings.TrimSpace(signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature")
	}
	return &event, nil
}

// HandleEvent dispatches on the event type. Unknown types and events that
// carry no user id are acknowledged without writing.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe event data required")
	}
	eventTime := time.Unix(event.Created, 0).UTC()
	if event.Created == 0 {
		eventTime = time.Now().UTC()
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checkout session")
		}
		return s.checkoutCompleted(ctx, event.ID, &cs, eventTime)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode subscription")
		}
		return s.subscriptionUpdated(ctx, event.ID, &sub, eventTime)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode subscription")
		}
		return s.subscriptionDeleted(ctx, event.ID, &sub, eventTime)
	default:
		return nil
	}
}

func (s *Service) checkoutCompleted(ctx context.Context, eventID string, cs *stripe.CheckoutSession, at time.Time) error {
	var sub *stripe.Subscription
	if cs.Subscription != nil && cs.Subscription.ID != "" {
		sub = cs.Subscription
		if s.fetcher != nil && sub.Items == nil {
			fetched, err := s.fetcher.GetSubscription(ctx, sub.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch stripe subscription")
			}
			sub = fetched
		}
	}
	var subMeta map[string]string
	if sub != nil {
		subMeta = sub.Metadata
	}

	// The subscription's own metadata wins over the session reference.
	rawUser := subscriptions.MetadataValue(subscriptions.MetadataUserID, subMeta)
	if rawUser == "" {
		rawUser = strings.TrimSpace(cs.ClientReferenceID)
	}
	if rawUser == "" {
		rawUser = subscriptions.MetadataValue(subscriptions.MetadataUserID, cs.Metadata)
	}
	userID, ok := s.userID(ctx, eventID, rawUser)
	if !ok {
		return nil
	}

	input := subscriptions.ApplyInput{
		UserID: userID,
		Plan: subscriptions.PlanFromMetadata(
			subscriptions.MetadataValue(subscriptions.MetadataPlan, subMeta, cs.Metadata),
			subscriptions.MetadataValue(subscriptions.MetadataType, subMeta, cs.Metadata),
		),
		Status:    enums.SubscriptionStatusActive,
		EventTime: at,
	}
	if cs.Customer != nil {
		input.StripeCustomerID = cs.Customer.ID
	}
	if sub != nil {
		input.StripeSubscriptionID = sub.ID
		input.CurrentPeriodEnd = periodEnd(sub)
	}
	return s.apply(ctx, eventID, input)
}

func (s *Service) subscriptionUpdated(ctx context.Context, eventID string, sub *stripe.Subscription, at time.Time) error {
	userID, ok := s.userID(ctx, eventID, subscriptions.MetadataValue(subscriptions.MetadataUserID, sub.Metadata))
	if !ok {
		return nil
	}
	return s.apply(ctx, eventID, subscriptions.ApplyInput{
		UserID: userID,
		Plan: subscriptions.PlanFromMetadata(
			subscriptions.MetadataValue(subscriptions.MetadataPlan, sub.Metadata),
			subscriptions.MetadataValue(subscriptions.MetadataType, sub.Metadata),
		),
		Status:               subscriptions.StatusFromStripe(sub.Status),
		CurrentPeriodEnd:     periodEnd(sub),
		StripeCustomerID:     subscriptions.CustomerID(sub),
		StripeSubscriptionID: sub.ID,
		EventTime:            at,
	})
}

func (s *Service) subscriptionDeleted(ctx context.Context, eventID string, sub *stripe.Subscription, at time.Time) error {
	userID, ok := s.userID(ctx, eventID, subscriptions.MetadataValue(subscriptions.MetadataUserID, sub.Metadata))
	if !ok {
		return nil
	}
	return s.apply(ctx, eventID, subscriptions.ApplyInput{
		UserID:               userID,
		Plan:                 string(enums.PlanTierFree),
		Status:               enums.SubscriptionStatusInactive,
		StripeCustomerID:     subscriptions.CustomerID(sub),
		StripeSubscriptionID: sub.ID,
		EventTime:            at,
	})
}

func (s *Service) userID(ctx context.Context, eventID, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err == nil && id != uuid.Nil {
		return id, true
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "stripe_event_id", eventID), "stripe.webhook.no_user")
	}
	return uuid.Nil, false
}

func (s *Service) apply(ctx context.Context, eventID string, input subscriptions.ApplyInput) error {
	applied, err := s.subs.Apply(ctx, input)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply stripe event")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, input.UserID.String()), map[string]any{
			"stripe_event_id": eventID,
			"plan":            input.Plan,
			"status":          string(input.Status),
			"applied":         applied,
		})
		s.logg.Info(logCtx, fmt.Sprintf("stripe.webhook.%s", input.Status))
	}
	return nil
}

func periodEnd(sub *stripe.Subscription) *time.Time {
	end := subscriptions.PeriodEndUnix(sub)
	if end <= 0 {
		return nil
	}
	t := time.Unix(end, 0).UTC()
	return &t
}
