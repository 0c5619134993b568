package profiles

import (
	"strings"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProfileDTO exposes profile data in API responses.
type ProfileDTO struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	Name               string              `json:"name"`
	Category           string              `json:"category"`
	Description        *string             `json:"description,omitempty"`
	City               string              `json:"city"`
	Zone               *string             `json:"zone,omitempty"`
	PostalCode         *string             `json:"postal_code,omitempty"`
	Phone              *string             `json:"phone,omitempty"`
	Whatsapp           bool                `json:"whatsapp"`
	Age                *int                `json:"age,omitempty"`
	Languages          []string            `json:"languages"`
	AvailableDays      []string            `json:"available_days"`
	AccompanimentTypes []string            `json:"accompaniment_types"`
	Tags               []string            `json:"tags"`
	Schedule           *string             `json:"schedule,omitempty"`
	HairColor          *string             `json:"hair_color,omitempty"`
	HeightCM           *int                `json:"height_cm,omitempty"`
	WeightKG           *int                `json:"weight_kg,omitempty"`
	Profession         *string             `json:"profession,omitempty"`
	Nationality        *string             `json:"nationality,omitempty"`
	BirthPlace         *string             `json:"birth_place,omitempty"`
	ImageURL           *string             `json:"image_url,omitempty"`
	Status             enums.ProfileStatus `json:"status"`
	Verified           bool                `json:"verified"`
	PhoneVerified      bool                `json:"phone_verified"`
	PhoneVerifiedAt    *time.Time          `json:"phone_verified_at,omitempty"`
	PublicPlan         string              `json:"public_plan"`
	ViewsCount         int64               `json:"views_count"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// FromModel maps the persisted profile into a DTO.
func FromModel(m *models.Profile) *ProfileDTO {
	if m == nil {
		return nil
	}
	return &ProfileDTO{
		ID:                 m.ID,
		UserID:             m.UserID,
		Name:               m.Name,
		Category:           m.Category,
		Description:        m.Description,
		City:               m.City,
		Zone:               m.Zone,
		PostalCode:         m.PostalCode,
		Phone:              m.Phone,
		Whatsapp:           m.Whatsapp,
		Age:                m.Age,
		Languages:          nonNil(m.Languages),
		AvailableDays:      nonNil(m.AvailableDays),
		AccompanimentTypes: nonNil(m.AccompanimentTypes),
		Tags:               nonNil(m.Tags),
		Schedule:           m.Schedule,
		HairColor:          m.HairColor,
		HeightCM:           m.HeightCM,
		WeightKG:           m.WeightKG,
		Profession:         m.Profession,
		Nationality:        m.Nationality,
		BirthPlace:         m.BirthPlace,
		ImageURL:           m.ImageURL,
		Status:             m.Status,
		Verified:           m.Verified,
		PhoneVerified:      m.PhoneVerified,
		PhoneVerifiedAt:    m.PhoneVerifiedAt,
		PublicPlan:         m.PublicPlan,
		ViewsCount:         m.ViewsCount,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func nonNil(values pq.StringArray) []string {
	if values == nil {
		return []string{}
	}
	return []string(values)
}

// UpsertInput carries the owner-editable fields. Status is never part of it.
type UpsertInput struct {
	Name               string   `json:"name" validate:"required,max=120"`
	Category           string   `json:"category" validate:"omitempty,max=40"`
	Description        *string  `json:"description" validate:"omitempty,max=4000"`
	City               string   `json:"city" validate:"required,max=120"`
	Zone               *string  `json:"zone" validate:"omitempty,max=120"`
	PostalCode         *string  `json:"postal_code" validate:"omitempty,postal_es"`
	Phone              string   `json:"phone" validate:"required,phone_es"`
	Whatsapp           bool     `json:"whatsapp"`
	Age                *int     `json:"age" validate:"omitempty,gte=18,lte=99"`
	Languages          []string `json:"languages" validate:"omitempty,max=20,dive,max=40"`
	AvailableDays      []string `json:"available_days" validate:"omitempty,max=7,dive,max=20"`
	AccompanimentTypes []string `json:"accompaniment_types" validate:"omitempty,max=20,dive,max=60"`
	Tags               []string `json:"tags" validate:"omitempty,max=30,dive,max=40"`
	Schedule           *string  `json:"schedule" validate:"omitempty,max=200"`
	HairColor          *string  `json:"hair_color" validate:"omitempty,max=40"`
	HeightCM           *int     `json:"height_cm" validate:"omitempty,gte=100,lte=250"`
	WeightKG           *int     `json:"weight_kg" validate:"omitempty,gte=30,lte=250"`
	Profession         *string  `json:"profession" validate:"omitempty,max=120"`
	Nationality        *string  `json:"nationality" validate:"omitempty,max=80"`
	BirthPlace         *string  `json:"birth_place" validate:"omitempty,max=120"`
	ImageURL           *string  `json:"image_url" validate:"omitempty,url"`
}

// apply copies the input onto the model, leaving status and moderation
// fields untouched.
func (in UpsertInput) apply(m *models.Profile) {
	m.Name = strings.TrimSpace(in.Name)
	m.Category = strings.TrimSpace(in.Category)
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	m.Description = trimmedOrNil(in.Description)
	m.City = strings.TrimSpace(in.City)
	m.Zone = trimmedOrNil(in.Zone)
	m.PostalCode = trimmedOrNil(in.PostalCode)
	phone := normalizePhone(in.Phone)
	m.Phone = &phone
	m.Whatsapp = in.Whatsapp
	m.Age = in.Age
	m.Languages = pq.StringArray(in.Languages)
	m.AvailableDays = pq.StringArray(in.AvailableDays)
	m.AccompanimentTypes = pq.StringArray(in.AccompanimentTypes)
	m.Tags = pq.StringArray(in.Tags)
	m.Schedule = trimmedOrNil(in.Schedule)
	m.HairColor = trimmedOrNil(in.HairColor)
	m.HeightCM = in.HeightCM
	m.WeightKG = in.WeightKG
	m.Profession = trimmedOrNil(in.Profession)
	m.Nationality = trimmedOrNil(in.Nationality)
	m.BirthPlace = trimmedOrNil(in.BirthPlace)
	m.ImageURL = trimmedOrNil(in.ImageURL)
}

// DefaultCategory is used when the owner leaves the category blank.
const DefaultCategory = "mujer"

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizePhone(value string) string {
	return strings.NewReplacer(" ", "", "-", "", ".", "").Replace(strings.TrimSpace(value))
}

// VerificationInput toggles the verification flags. Nil leaves a flag as is.
type VerificationInput struct {
	Verified      *bool `json:"verified"`
	PhoneVerified *bool `json:"phone_verified"`
}

// ModerationInput is a moderator command plus an optional reason.
type ModerationInput struct {
	Action string  `json:"action" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=1000"`
}

// ModerationLogDTO exposes an audit entry.
type ModerationLogDTO struct {
	ID          uuid.UUID              `json:"id"`
	ProfileID   uuid.UUID              `json:"profile_id"`
	ModeratorID uuid.UUID              `json:"moderator_id"`
	Action      enums.ModerationAction `json:"action"`
	Reason      *string                `json:"reason,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func logFromModel(m models.ModerationLog) ModerationLogDTO {
	return ModerationLogDTO{
		ID:          m.ID,
		ProfileID:   m.ProfileID,
		ModeratorID: m.ModeratorID,
		Action:      m.Action,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt,
	}
}

// ListResult is one page of profiles.
type ListResult struct {
	Items      []ProfileDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
