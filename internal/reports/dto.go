package reports

import (
	"time"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateInput is a visitor's report against a profile.
type CreateInput struct {
	Reason      string  `json:"reason" validate:"omitempty,oneof=spam fake inappropriate scam underage other"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// ReviewInput is a staff update to a report.
type ReviewInput struct {
	Status string `json:"status" validate:"required,oneof=pending reviewed resolved dismissed"`
}

type ReportDTO struct {
	ID          uuid.UUID          `json:"id"`
	ReporterID  uuid.UUID          `json:"reporter_id"`
	ProfileID   uuid.UUID          `json:"profile_id"`
	Reason      enums.ReportReason `json:"reason"`
	Description *string            `json:"description,omitempty"`
	Status      enums.ReportStatus `json:"status"`
	ReviewedAt  *time.Time         `json:"reviewed_at,omitempty"`
	ReviewedBy  *uuid.UUID         `json:"reviewed_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func fromModel(m *models.Report) ReportDTO {
	return ReportDTO{
		ID:          m.ID,
		ReporterID:  m.ReporterID,
		ProfileID:   m.ProfileID,
		Reason:      m.Reason,
		Description: m.Description,
		Status:      m.Status,
		ReviewedAt:  m.ReviewedAt,
		ReviewedBy:  m.ReviewedBy,
		CreatedAt:   m.CreatedAt,
	}
}

type ListResult struct {
	Items      []ReportDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
