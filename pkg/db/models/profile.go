package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

// Profile is the advertiser listing; one row per account.
type Profile struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name               string              `gorm:"column:name;not null"`
	Category           string              `gorm:"column:category;not null;default:'mujer'"`
	Description        *string             `gorm:"column:description"`
	City               string              `gorm:"column:city;not null"`
	Zone               *string             `gorm:"column:zone"`
	PostalCode         *string             `gorm:"column:postal_code"`
	Phone              *string             `gorm:"column:phone"`
	Whatsapp           bool                `gorm:"column:whatsapp;not null;default:false"`
	Age                *int                `gorm:"column:age"`
	Languages          pq.StringArray      `gorm:"column:languages;type:text[]"`
	AvailableDays      pq.StringArray      `gorm:"column:available_days;type:text[]"`
	AccompanimentTypes pq.StringArray      `gorm:"column:accompaniment_types;type:text[]"`
	Tags               pq.StringArray      `gorm:"column:tags;type:text[]"`
	Schedule           *string             `gorm:"column:schedule"`
	HairColor          *string             `gorm:"column:hair_color"`
	HeightCM           *int                `gorm:"column:height_cm"`
	WeightKG           *int                `gorm:"column:weight_kg"`
	Profession         *string             `gorm:"column:profession"`
	Nationality        *string             `gorm:"column:nationality"`
	BirthPlace         *string             `gorm:"column:birth_place"`
	ImageURL           *string             `gorm:"column:image_url"`
	Status             enums.ProfileStatus `gorm:"column:status;not null;default:'pending'"`
	Verified           bool                `gorm:"column:verified;not null;default:false"`
	PhoneVerified      bool                `gorm:"column:phone_verified;not null;default:false"`
	PhoneVerifiedAt    *time.Time          `gorm:"column:phone_verified_at"`
	PhoneVerifiedBy    *uuid.UUID          `gorm:"column:phone_verified_by;type:uuid"`
	PublicPlan         string              `gorm:"column:public_plan;not null;default:'free'"`
	ViewsCount         int64               `gorm:"column:views_count;not null;default:0"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }
