package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// publicPlanWriter keeps profiles.public_plan in step with the subscription.
type publicPlanWriter interface {
	UpdatePublicPlanWithTx(tx *gorm.DB, userID uuid.UUID, plan string) error
}

// Service defines the subscription surface.
type Service interface {
	Lookup(ctx context.Context, userID uuid.UUID) Resolution
	Apply(ctx context.Context, input ApplyInput) (bool, error)
	ListActive(ctx context.Context) ([]models.Subscription, error)
	ListDueForReconcile(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	Profiles          publicPlanWriter
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// ApplyInput is one state write. EventTime orders competing writes.
type ApplyInput struct {
	UserID               uuid.UUID
	Plan                 string
	Status               enums.SubscriptionStatus
	CurrentPeriodEnd     *time.Time
	StripeCustomerID     string
	StripeSubscriptionID string
	EventTime            time.Time
}

type service struct {
	repo     Repository
	profiles publicPlanWriter
	txRunner txRunner
	logg     *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile plan writer required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		profiles: params.Profiles,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// Lookup never fails: store errors are logged and resolve to free.
func (s *service) Lookup(ctx context.Context, userID uuid.UUID) Resolution {
	if userID == uuid.Nil {
		return FreeResolution(userID)
	}
	sub, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if s.logg != nil {
			ctx = s.logg.WithUserID(ctx, userID.String())
			s.logg.Error(ctx, "subscription.lookup.failed", err)
		}
		return FreeResolution(userID)
	}
	return Resolve(userID, sub)
}

// Apply upserts the row with last-write-wins on EventTime and mirrors the
// effective tier onto the account's profile, if any.
func (s *service) Apply(ctx context.Context, input ApplyInput) (bool, error) {
	if input.UserID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Status.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid subscription status %q", input.Status))
	}
	plan := strings.TrimSpace(input.Plan)
	if plan == "" {
		plan = string(enums.PlanTierFree)
	}
	eventTime := input.EventTime
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	row := &models.Subscription{
		UserID:               input.UserID,
		Plan:                 plan,
		Status:               input.Status,
		CurrentPeriodEnd:     input.CurrentPeriodEnd,
		StripeCustomerID:     optional(input.StripeCustomerID),
		StripeSubscriptionID: optional(input.StripeSubscriptionID),
		UpdatedAt:            eventTime.UTC(),
	}

	var applied bool
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Upsert(ctx, row)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert subscription")
		}
		applied = ok
		if !ok {
			return nil
		}
		public := Resolve(input.UserID, row).EffectiveTier
		if err := s.profiles.UpdatePublicPlanWithTx(tx, input.UserID, string(public)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update public plan")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": input.UserID.String(),
			"plan":    plan,
			"status":  string(input.Status),
			"applied": applied,
		})
		if applied {
			s.logg.Info(logCtx, "subscription.upserted")
		} else {
			s.logg.Info(logCtx, "subscription.upsert.stale")
		}
	}
	return applied, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Subscription, error) {
	subs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

func (s *service) ListDueForReconcile(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	subs, err := s.repo.ListDueForReconcile(ctx, now, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions due for reconcile")
	}
	return subs, nil
}

// DescribeLimits summarises what a resolution grants, for API responses.
func DescribeLimits(res Resolution) map[string]any {
	media := res.MediaPlan()
	return map[string]any{
		"favorites": res.FavoritesLimit(),
		"media":     media.Media,
		"can_assign": map[string]bool{
			string(enums.MediaVisibilityRegistered): media.CanAssignRegistered,
			string(enums.MediaVisibilityPaid):       media.CanAssignPaid,
			string(enums.MediaVisibilityVip):        media.CanAssignVip,
		},
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
