package media

import (
	"time"

	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
)

// MediaDTO exposes one media item. StoragePath is only filled for the owner.
type MediaDTO struct {
	ID          uuid.UUID             `json:"id"`
	ProfileID   uuid.UUID             `json:"profile_id"`
	MediaType   enums.MediaType       `json:"media_type"`
	Visibility  enums.MediaVisibility `json:"visibility"`
	URL         string                `json:"url"`
	StoragePath string                `json:"storage_path,omitempty"`
	MimeType    string                `json:"mime_type"`
	SizeBytes   int64                 `json:"size_bytes"`
	Position    int                   `json:"position"`
	CreatedAt   time.Time             `json:"created_at"`
}

func fromModel(m *models.ProfileMedia, url string, withPath bool) MediaDTO {
	dto := MediaDTO{
		ID:         m.ID,
		ProfileID:  m.ProfileID,
		MediaType:  m.MediaType,
		Visibility: m.Visibility,
		URL:        url,
		MimeType:   m.MimeType,
		SizeBytes:  m.SizeBytes,
		Position:   m.Position,
		CreatedAt:  m.CreatedAt,
	}
	if withPath {
		dto.StoragePath = m.StoragePath
	}
	return dto
}

// Gallery is a profile's media as seen by one viewer.
type Gallery struct {
	Items  []MediaDTO                 `json:"items"`
	Hidden entitlements.HiddenSummary `json:"hidden"`
}

// OwnerMedia is the owner's management view: every item plus quota state.
type OwnerMedia struct {
	Items  []MediaDTO             `json:"items"`
	Counts entitlements.Counts    `json:"counts"`
	Limits entitlements.MediaCaps `json:"limits"`
	Plan   string                 `json:"plan"`
	Tier   enums.PlanTier         `json:"tier"`
}

// UploadInput is one multipart upload.
type UploadInput struct {
	FileName   string
	Data       []byte
	Visibility string
}
