package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

// ProfileMedia is a single image or video published under a profile.
type ProfileMedia struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID   uuid.UUID             `gorm:"column:profile_id;type:uuid;not null;index"`
	MediaType   enums.MediaType       `gorm:"column:media_type;not null"`
	Visibility  enums.MediaVisibility `gorm:"column:visibility;not null;default:'public'"`
	StoragePath string                `gorm:"column:storage_path;not null;uniqueIndex"`
	PublicURL   *string               `gorm:"column:public_url"`
	MimeType    string                `gorm:"column:mime_type;not null"`
	SizeBytes   int64                 `gorm:"column:size_bytes;not null;default:0"`
	Position    int                   `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (ProfileMedia) TableName() string { return "profile_media" }
