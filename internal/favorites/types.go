package favorites

import (
	"time"

	"github.com/google/uuid"
)

// ProfileSummary is the card shown for a saved profile.
type ProfileSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	City       string    `json:"city"`
	Zone       *string   `json:"zone,omitempty"`
	ImageURL   *string   `json:"image_url,omitempty"`
	Verified   bool      `json:"verified"`
	PublicPlan string    `json:"public_plan"`
}

// FavoriteDTO is one saved profile.
type FavoriteDTO struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Profile   ProfileSummary `json:"profile"`
}

// ListDTO wraps the list with the caller's usage.
type ListDTO struct {
	Items []FavoriteDTO `json:"items"`
	Count int           `json:"count"`
	Limit int           `json:"limit"`
}

// IDsDTO is a lightweight projection for marking saved profiles.
type IDsDTO struct {
	ProfileIDs []uuid.UUID `json:"profile_ids"`
}
