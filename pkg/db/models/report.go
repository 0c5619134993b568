package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

type Report struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReporterID  uuid.UUID          `gorm:"column:reporter_id;type:uuid;not null"`
	ProfileID   uuid.UUID          `gorm:"column:profile_id;type:uuid;not null;index"`
	Reason      enums.ReportReason `gorm:"column:reason;not null;default:'spam'"`
	Description *string            `gorm:"column:description"`
	Status      enums.ReportStatus `gorm:"column:status;not null;default:'pending'"`
	ReviewedAt  *time.Time         `gorm:"column:reviewed_at"`
	ReviewedBy  *uuid.UUID         `gorm:"column:reviewed_by;type:uuid"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (Report) TableName() string { return "reports" }
