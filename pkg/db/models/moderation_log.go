package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

// ModerationLog is an append-only audit entry.
type ModerationLog struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID   uuid.UUID              `gorm:"column:profile_id;type:uuid;not null;index"`
	ModeratorID uuid.UUID              `gorm:"column:moderator_id;type:uuid;not null"`
	Action      enums.ModerationAction `gorm:"column:action;not null"`
	Reason      *string                `gorm:"column:reason"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (ModerationLog) TableName() string { return "moderation_logs" }
