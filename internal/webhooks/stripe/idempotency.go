package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/redis"
)

const guardScope = "stripe_webhook"

// IdempotencyGuard marks Stripe event ids as seen so redeliveries are
// acknowledged without reprocessing. Keys are partitioned by Stripe
// environment because test and live accounts share one Redis.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
	now   func() time.Time
}

// GuardOption customises an IdempotencyGuard.
type GuardOption func(*IdempotencyGuard)

// WithEnvironment scopes keys to a Stripe environment such as "test" or "live".
func WithEnvironment(env string) GuardOption {
	return func(g *IdempotencyGuard) {
		if env = strings.TrimSpace(strings.ToLower(env)); env != "" {
			g.scope = guardScope + ":" + env
		}
	}
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, opts ...GuardOption) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	g := &IdempotencyGuard{store: store, ttl: ttl, scope: guardScope, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CheckAndMark reports whether eventID was already seen, marking it if not.
// The stored value is the first-seen time, which helps when tracing
// duplicate deliveries by hand.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if err := validEventID(eventID); err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, g.key(eventID), g.now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark stripe event %s: %w", eventID, err)
	}
	return !set, nil
}

// Release forgets eventID so a failed delivery can be retried.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	if err := validEventID(eventID); err != nil {
		return err
	}
	return g.store.Del(ctx, g.key(eventID))
}

func (g *IdempotencyGuard) key(eventID string) string {
	return g.store.IdempotencyKey(g.scope, eventID)
}

func validEventID(eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	if !strings.HasPrefix(eventID, "evt_") {
		return fmt.Errorf("event id %q is not a stripe event id", eventID)
	}
	return nil
}
