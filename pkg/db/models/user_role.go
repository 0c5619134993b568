package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

type UserRole struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID     `gorm:"column:user_id;type:uuid;not null;uniqueIndex:user_roles_user_role_key"`
	Role      enums.AppRole `gorm:"column:role;not null;uniqueIndex:user_roles_user_role_key"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string { return "user_roles" }
