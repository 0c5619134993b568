package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *Profile) BeforeCreate(*gorm.DB) error           { ensureID(&m.ID); return nil }
func (m *ProfileMedia) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *Subscription) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *Favorite) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *UserRole) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *ModerationLog) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *Report) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *ContactSubmission) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
