package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/contactalia/contactalia-backend/pkg/pagination"
	"github.com/contactalia/contactalia-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const verifiedRank = "CASE WHEN verified THEN 1 ELSE 0 END"

// Repository handles profile persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to profile operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a profile by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserID loads the single profile owned by the account.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByIDForUpdateWithTx locks the profile row for the rest of the transaction.
func (r *Repository) FindByIDForUpdateWithTx(tx *gorm.DB, id uuid.UUID) (*models.Profile, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var profile models.Profile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserIDForUpdateWithTx locks the account's profile row.
func (r *Repository) FindByUserIDForUpdateWithTx(tx *gorm.DB, userID uuid.UUID) (*models.Profile, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var profile models.Profile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateWithTx inserts a new profile row.
func (r *Repository) CreateWithTx(tx *gorm.DB, profile *models.Profile) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	return tx.Create(profile).Error
}

// UpdateWithTx persists every column of the profile.
func (r *Repository) UpdateWithTx(tx *gorm.DB, profile *models.Profile) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	return tx.Save(profile).Error
}

// UpdatePublicPlanWithTx mirrors the owner's plan onto their profile. Accounts
// without a profile are left untouched.
func (r *Repository) UpdatePublicPlanWithTx(tx *gorm.DB, userID uuid.UUID, plan string) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		UpdateColumn("public_plan", plan).Error
}

// IncrementViews bumps views_count without touching updated_at.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
}

// ExistsForUser reports whether the account owns a profile.
func (r *Repository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PublicFilters narrows the public listing.
type PublicFilters struct {
	City     string
	Category string
	Zone     string
}

// ListPublic returns approved profiles, verified first, then newest.
func (r *Repository) ListPublic(ctx context.Context, filters PublicFilters, params pagination.Params) ([]models.Profile, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseRankedCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("status = ?", enums.ProfileStatusApproved)
	if city := visibility.NormalizeCity(filters.City); city != "" {
		query = query.Where("LOWER(city) = ?", city)
	}
	if category := strings.TrimSpace(filters.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if zone := strings.TrimSpace(filters.Zone); zone != "" {
		query = query.Where("LOWER(zone) = LOWER(?)", zone)
	}
	if cursor != nil {
		query = query.Where(
			"("+verifiedRank+" < ?) OR ("+verifiedRank+" = ? AND created_at < ?) OR ("+verifiedRank+" = ? AND created_at = ? AND id < ?)",
			cursor.Rank,
			cursor.Rank, cursor.CreatedAt,
			cursor.Rank, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Profile
	if err := query.
		Order("verified DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		last := rows[limit-1]
		rank := 0
		if last.Verified {
			rank = 1
		}
		next = pagination.EncodeRankedCursor(pagination.RankedCursor{
			Rank:   rank,
			Cursor: pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID},
		})
		rows = rows[:limit]
	}
	return rows, next, nil
}

// ListByStatus pages through profiles for the staff queue, newest first.
// An empty status lists every profile.
func (r *Repository) ListByStatus(ctx context.Context, status enums.ProfileStatus, params pagination.Params) ([]models.Profile, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).Model(&models.Profile{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Profile
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		last := rows[limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	return rows, next, nil
}
