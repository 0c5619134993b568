package moderation

import (
	"context"
	"fmt"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the append-only moderation audit log. It has no update or
// delete methods.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AppendWithTx writes one entry inside the caller's transaction.
func (r *Repository) AppendWithTx(tx *gorm.DB, entry *models.ModerationLog) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if entry == nil {
		return fmt.Errorf("moderation log entry required")
	}
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid moderation action %q", entry.Action)
	}
	return tx.Create(entry).Error
}

// ListByProfile returns the newest entries first.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID, limit int) ([]models.ModerationLog, error) {
	var rows []models.ModerationLog
	query := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
