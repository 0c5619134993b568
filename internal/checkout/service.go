package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

// StripeAPI is the subset of the Stripe client checkout needs.
type StripeAPI interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type subscriptionWriter interface {
	Apply(ctx context.Context, input subscriptions.ApplyInput) (bool, error)
}

// CreateInput is the checkout request body.
type CreateInput struct {
	Plan   string `json:"plan" validate:"required,oneof=premium vip"`
	UserID string `json:"user_id" validate:"required,uuid"`
	Type   string `json:"type" validate:"required,oneof=anunciante visitante"`
}

// CreateResult carries the hosted checkout URL.
type CreateResult struct {
	URL string `json:"url"`
}

type SyncInput struct {
	SessionID string `json:"session_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required,uuid"`
}

type SyncResult struct {
	OK   bool   `json:"ok"`
	Plan string `json:"plan"`
}

// Service opens Stripe checkout sessions and syncs completed ones.
type Service interface {
	Create(ctx context.Context, session auth.Session, input CreateInput) (*CreateResult, error)
	Sync(ctx context.Context, session auth.Session, input SyncInput) (*SyncResult, error)
}

type ServiceParams struct {
	// Stripe is nil when no secret key is configured.
	Stripe        StripeAPI
	Prices        PriceTable
	SiteURL       string
	Subscriptions subscriptionWriter
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	stripe  StripeAPI
	prices  PriceTable
	siteURL string
	subs    subscriptionWriter
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription writer required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		stripe:  params.Stripe,
		prices:  params.Prices,
		siteURL: strings.TrimRight(strings.TrimSpace(params.SiteURL), "/"),
		subs:    params.Subscriptions,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) requireStripe() error {
	if s.stripe == nil {
		return pkgerrors.New(pkgerrors.CodeConfig, "missing Stripe secret key: set CONTACTALIA_STRIPE_SECRET_KEY")
	}
	return nil
}

// Create opens a subscription-mode checkout for the given plan. An
// authenticated caller may only buy for itself.
func (s *service) Create(ctx context.Context, session auth.Session, input CreateInput) (*CreateResult, error) {
	userID, err := uuid.Parse(strings.TrimSpace(input.UserID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id")
	}
	tier, err := parseTier(input.Plan)
	if err != nil {
		return nil, err
	}
	audience, err := enums.ParseAudience(strings.ToLower(strings.TrimSpace(input.Type)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
	}
	if session.Authenticated && session.AccountID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user_id does not match the authenticated user")
	}

	if err := s.requireStripe(); err != nil {
		return nil, err
	}
	priceID, err := s.prices.Resolve(tier, audience)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		subscriptions.MetadataUserID: userID.String(),
		subscriptions.MetadataPlan:   string(tier),
		subscriptions.MetadataType:   string(audience),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(userID.String()),
		SuccessURL:        stripe.String(s.siteURL + "/cuenta?stripe=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.siteURL + "/tarifas?stripe=cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		Metadata: metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	cs, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create checkout session")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, userID.String()), map[string]any{
			"checkout_session_id": cs.ID,
			"plan":                string(tier),
			"type":                string(audience),
		})
		s.logg.Info(logCtx, "checkout.session.created")
	}
	return &CreateResult{URL: cs.URL}, nil
}

// Sync applies a completed checkout without waiting for the webhook.
func (s *service) Sync(ctx context.Context, session auth.Session, input SyncInput) (*SyncResult, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	userID, err := uuid.Parse(strings.TrimSpace(input.UserID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id")
	}
	if session.Authenticated && session.AccountID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user_id does not match the authenticated user")
	}
	if err := s.requireStripe(); err != nil {
		return nil, err
	}

	cs, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "retrieve checkout session")
	}
	if cs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session not found")
	}
	if cs.ClientReferenceID != userID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another user")
	}

	var subMeta map[string]string
	var periodEnd *time.Time
	var subscriptionID string
	if cs.Subscription != nil {
		subMeta = cs.Subscription.Metadata
		subscriptionID = cs.Subscription.ID
		if end := subscriptions.PeriodEndUnix(cs.Subscription); end > 0 {
			t := time.Unix(end, 0).UTC()
			periodEnd = &t
		}
	}
	plan := subscriptions.PlanFromMetadata(
		subscriptions.MetadataValue(subscriptions.MetadataPlan, subMeta, cs.Metadata),
		subscriptions.MetadataValue(subscriptions.MetadataType, subMeta, cs.Metadata),
	)
	customerID := ""
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}

	if _, err := s.subs.Apply(ctx, subscriptions.ApplyInput{
		UserID:               userID,
		Plan:                 plan,
		Status:               enums.SubscriptionStatusActive,
		CurrentPeriodEnd:     periodEnd,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subscriptionID,
		EventTime:            s.now(),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store subscription")
	}
	return &SyncResult{OK: true, Plan: plan}, nil
}

func parseTier(raw string) (enums.PlanTier, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(enums.PlanTierPremium):
		return enums.PlanTierPremium, nil
	case string(enums.PlanTierVip):
		return enums.PlanTierVip, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid plan %q", raw))
}
