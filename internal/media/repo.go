package media

import (
	"context"
	"fmt"

	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes profile media persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type countRow struct {
	MediaType  enums.MediaType
	Visibility enums.MediaVisibility
	Total      int
}

// CountsForProfile tallies media per (type, bucket). Callers that gate a
// write on the result must pass the transaction holding the profile lock.
func (r *Repository) CountsForProfile(tx *gorm.DB, profileID uuid.UUID) (entitlements.Counts, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var rows []countRow
	if err := tx.Model(&models.ProfileMedia{}).
		Select("media_type, visibility, COUNT(*) AS total").
		Where("profile_id = ?", profileID).
		Group("media_type, visibility").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := entitlements.Counts{}
	for _, row := range rows {
		counts.Add(row.MediaType, row.Visibility, row.Total)
	}
	return counts, nil
}

// Counts is CountsForProfile outside any transaction, for pre-checks and
// display only.
func (r *Repository) Counts(ctx context.Context, profileID uuid.UUID) (entitlements.Counts, error) {
	return r.CountsForProfile(r.db.WithContext(ctx), profileID)
}

// NextPositionWithTx returns max(position)+1 for the profile.
func (r *Repository) NextPositionWithTx(tx *gorm.DB, profileID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	var maxPos *int
	if err := tx.Model(&models.ProfileMedia{}).
		Select("MAX(position)").
		Where("profile_id = ?", profileID).
		Scan(&maxPos).Error; err != nil {
		return 0, err
	}
	if maxPos == nil {
		return 1, nil
	}
	return *maxPos + 1, nil
}

// CreateWithTx inserts a media row.
func (r *Repository) CreateWithTx(tx *gorm.DB, item *models.ProfileMedia) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if item == nil {
		return fmt.Errorf("media item is required")
	}
	return tx.Create(item).Error
}

// FindByID retrieves a media record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProfileMedia, error) {
	var m models.ProfileMedia
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByIDWithTx retrieves a media record inside the transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.ProfileMedia, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var m models.ProfileMedia
	if err := tx.First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateVisibilityWithTx sets the visibility of one item.
func (r *Repository) UpdateVisibilityWithTx(tx *gorm.DB, id uuid.UUID, v enums.MediaVisibility) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.ProfileMedia{}).Where("id = ?", id).Update("visibility", v).Error
}

// UpdatePositionsWithTx writes the given position for each item of the profile.
func (r *Repository) UpdatePositionsWithTx(tx *gorm.DB, profileID uuid.UUID, positions map[uuid.UUID]int) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	for id, pos := range positions {
		res := tx.Model(&models.ProfileMedia{}).
			Where("id = ? AND profile_id = ?", id, profileID).
			Update("position", pos)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// Delete removes a media record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProfileMedia{}).Error
}

// ListByProfile returns the profile's media in display order.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileMedia, error) {
	var rows []models.ProfileMedia
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExistingPaths reports which of the given storage paths have a row.
func (r *Repository) ExistingPaths(ctx context.Context, paths []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.ProfileMedia{}).
		Where("storage_path IN ?", paths).
		Pluck("storage_path", &found).Error; err != nil {
		return nil, err
	}
	for _, p := range found {
		out[p] = struct{}{}
	}
	return out, nil
}
