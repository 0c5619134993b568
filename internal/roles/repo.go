package roles

import (
	"context"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists role grants.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListRoles returns every role granted to the account.
func (r *Repository) ListRoles(ctx context.Context, userID uuid.UUID) ([]enums.AppRole, error) {
	var out []enums.AppRole
	if err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Grant inserts the pair and ignores duplicates.
func (r *Repository) Grant(ctx context.Context, userID uuid.UUID, role enums.AppRole) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
}

// Revoke deletes the pair if present.
func (r *Repository) Revoke(ctx context.Context, userID uuid.UUID, role enums.AppRole) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.UserRole{}).Error
}
