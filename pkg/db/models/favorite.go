package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite links a visitor account to a profile it saved.
type Favorite struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:favorites_user_profile_key"`
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;not null;uniqueIndex:favorites_user_profile_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Favorite) TableName() string { return "favorites" }
