package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/contactalia/contactalia-backend/pkg/enums"
)

// ContactSubmission is a message sent through the public contact form.
type ContactSubmission struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string              `gorm:"column:name;not null"`
	Email     string              `gorm:"column:email;not null"`
	Subject   *string             `gorm:"column:subject"`
	Message   string              `gorm:"column:message;not null"`
	Status    enums.ContactStatus `gorm:"column:status;not null;default:'new'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (ContactSubmission) TableName() string { return "contact_submissions" }
