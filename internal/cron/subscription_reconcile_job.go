package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

const defaultReconcileLimit = 250

type reconcileStore interface {
	ListDueForReconcile(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	Apply(ctx context.Context, input subscriptions.ApplyInput) (bool, error)
}

type stripeSubscriptionGetter interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type SubscriptionReconcileJobParams struct {
	Logger        *logger.Logger
	Subscriptions reconcileStore
	Stripe        stripeSubscriptionGetter
	Limit         int
	Now           func() time.Time
}

// NewSubscriptionReconcileJob re-reads active subscriptions whose period
// has ended from Stripe, repairing rows a missed webhook left stale.
func NewSubscriptionReconcileJob(params SubscriptionReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionReconcileJob{
		logg:   params.Logger,
		subs:   params.Subscriptions,
		stripe: params.Stripe,
		limit:  limit,
		now:    now,
	}, nil
}

type subscriptionReconcileJob struct {
	logg   *logger.Logger
	subs   reconcileStore
	stripe stripeSubscriptionGetter
	limit  int
	now    func() time.Time
}

func (j *subscriptionReconcileJob) Name() string { return "subscription-reconcile" }

func (j *subscriptionReconcileJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.subs.ListDueForReconcile(ctx, now, j.limit)
	if err != nil {
		return err
	}

	var (
		errs    error
		updated int
	)
	for _, row := range due {
		if row.StripeSubscriptionID == nil || *row.StripeSubscriptionID == "" {
			continue
		}
		remote, err := j.stripe.GetSubscription(ctx, *row.StripeSubscriptionID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("fetch %s: %w", *row.StripeSubscriptionID, err))
			continue
		}
		applied, err := j.subs.Apply(ctx, reconcileInput(row, remote, now))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("apply %s: %w", *row.StripeSubscriptionID, err))
			continue
		}
		if applied {
			updated++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"updated": updated,
	}), "cron.subscription_reconcile.summary")
	return errs
}

// reconcileInput keeps the stored plan unless the Stripe metadata names one.
func reconcileInput(row models.Subscription, remote *stripe.Subscription, now time.Time) subscriptions.ApplyInput {
	plan := row.Plan
	if strings.TrimSpace(remote.Metadata[subscriptions.MetadataPlan]) != "" {
		plan = subscriptions.PlanFromMetadata(remote.Metadata[subscriptions.MetadataPlan], remote.Metadata[subscriptions.MetadataType])
	}
	input := subscriptions.ApplyInput{
		UserID:               row.UserID,
		Plan:                 plan,
		Status:               subscriptions.StatusFromStripe(remote.Status),
		StripeCustomerID:     subscriptions.CustomerID(remote),
		StripeSubscriptionID: remote.ID,
		EventTime:            now,
	}
	if input.StripeCustomerID == "" && row.StripeCustomerID != nil {
		input.StripeCustomerID = *row.StripeCustomerID
	}
	if end := subscriptions.PeriodEndUnix(remote); end > 0 {
		t := time.Unix(end, 0).UTC()
		input.CurrentPeriodEnd = &t
	}
	return input
}
