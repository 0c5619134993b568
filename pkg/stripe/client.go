package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/subscription"

	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

var (
	ErrAPIKeyRequired = errors.New("stripe api key is required")
	errParamsRequired = errors.New("checkout session params required")
)

// keyPrefixes lists the accepted secret and restricted key prefixes per mode.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

// Client talks to the Stripe API for checkout and subscription lookups.
// Webhook signatures are checked by the webhook service, not here.
type Client struct {
	mode       string
	restricted bool
}

// NewClient checks that the secret key matches the configured mode and
// installs it for the Stripe resource packages.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	if mode == "" {
		mode = "test"
	}
	prefixes, ok := keyPrefixes[mode]
	if !ok {
		return nil, fmt.Errorf("stripe environment %q is not one of test, live", mode)
	}

	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, ErrAPIKeyRequired
	}
	if !hasAnyPrefix(key, prefixes) {
		return nil, fmt.Errorf("stripe %s mode needs a key starting with %s", mode, strings.Join(prefixes, " or "))
	}
	stripe.Key = key

	c := &Client{mode: mode, restricted: strings.HasPrefix(key, "rk_")}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_mode":       c.mode,
			"stripe_restricted": c.restricted,
		}), "stripe client ready")
	}
	return c, nil
}

// Environment is the Stripe mode the key belongs to.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.mode
}

// CreateCheckoutSession opens a hosted Checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errParamsRequired
	}
	params.Context = ctx
	return checkoutsession.New(params)
}

// GetCheckoutSession fetches a session with its subscription expanded so
// the caller can read the period end without a second round trip.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	return checkoutsession.Get(id, params)
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return subscription.Get(id, params)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
