package favorites

import (
	"context"
	"time"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository encapsulates favorites persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a favorites repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ExistsWithTx reports whether the pair is already saved.
func (r *Repository) ExistsWithTx(tx *gorm.DB, userID, profileID uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Model(&models.Favorite{}).
		Where("user_id = ? AND profile_id = ?", userID, profileID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountWithTx counts every favorite the account holds.
func (r *Repository) CountWithTx(tx *gorm.DB, userID uuid.UUID) (int, error) {
	var count int64
	if err := tx.Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// InsertWithTx adds the pair and ignores duplicates.
func (r *Repository) InsertWithTx(tx *gorm.DB, userID, profileID uuid.UUID) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "profile_id"}},
		DoNothing: true,
	}).Create(&models.Favorite{UserID: userID, ProfileID: profileID}).Error
}

// Remove deletes the pair if it exists.
func (r *Repository) Remove(ctx context.Context, userID, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND profile_id = ?", userID, profileID).
		Delete(&models.Favorite{}).
		Error
}

type favoriteRecord struct {
	FavoriteID        uuid.UUID
	FavoriteCreatedAt time.Time
	ProfileID         uuid.UUID
	Name              string
	Category          string
	City              string
	Zone              *string
	ImageURL          *string
	Verified          bool
	PublicPlan        string
}

func (r favoriteRecord) toDTO() FavoriteDTO {
	return FavoriteDTO{
		ID:        r.FavoriteID,
		CreatedAt: r.FavoriteCreatedAt,
		Profile: ProfileSummary{
			ID:         r.ProfileID,
			Name:       r.Name,
			Category:   r.Category,
			City:       r.City,
			Zone:       r.Zone,
			ImageURL:   r.ImageURL,
			Verified:   r.Verified,
			PublicPlan: r.PublicPlan,
		},
	}
}

// ListApproved returns favorites in insertion order, skipping profiles that
// are not currently approved. Those rows are kept, only hidden.
func (r *Repository) ListApproved(ctx context.Context, userID uuid.UUID) ([]FavoriteDTO, error) {
	var records []favoriteRecord
	if err := r.db.WithContext(ctx).
		Table("favorites f").
		Select(`f.id AS favorite_id, f.created_at AS favorite_created_at,
			p.id AS profile_id, p.name, p.category, p.city, p.zone, p.image_url, p.verified, p.public_plan`).
		Joins("JOIN profiles p ON p.id = f.profile_id").
		Where("f.user_id = ? AND p.status = ?", userID, enums.ProfileStatusApproved).
		Order("f.created_at ASC").
		Order("f.id ASC").
		Scan(&records).Error; err != nil {
		return nil, err
	}
	out := make([]FavoriteDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDTO())
	}
	return out, nil
}

// ListProfileIDs returns the approved profile ids the account saved.
func (r *Repository) ListProfileIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Table("favorites f").
		Joins("JOIN profiles p ON p.id = f.profile_id").
		Where("f.user_id = ? AND p.status = ?", userID, enums.ProfileStatusApproved).
		Order("f.created_at ASC").
		Pluck("f.profile_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
