package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) (bool, error)
	ListActive(ctx context.Context) ([]models.Subscription, error)
	ListDueForReconcile(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByUser returns nil, nil when the account has no row.
func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// Upsert writes the row keyed by user_id unless the stored row is newer than
// sub.UpdatedAt. It reports whether the write was applied.
func (r *repository) Upsert(ctx context.Context, sub *models.Subscription) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan",
				"status",
				"current_period_end",
				"stripe_customer_id",
				"stripe_subscription_id",
				"updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "subscriptions.updated_at <= excluded.updated_at"},
			}},
		}).
		Create(sub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.SubscriptionStatusActive).
		Order("updated_at DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListDueForReconcile returns active Stripe-backed rows whose period has ended.
func (r *repository) ListDueForReconcile(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	if limit <= 0 {
		limit = 250
	}
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.SubscriptionStatusActive).
		Where("stripe_subscription_id IS NOT NULL AND stripe_subscription_id <> ''").
		Where("current_period_end IS NOT NULL AND current_period_end < ?", now).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
