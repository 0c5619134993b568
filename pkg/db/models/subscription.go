package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

// Subscription persists the plan state per account. UpdatedAt is written by
// the caller from the source event time and guards last-write-wins upserts.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Plan                 string                   `gorm:"column:plan;not null;default:'free'"`
	Status               enums.SubscriptionStatus `gorm:"column:status;not null;default:'inactive'"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end"`
	StripeCustomerID     *string                  `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID *string                  `gorm:"column:stripe_subscription_id"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Subscription) TableName() string { return "subscriptions" }
