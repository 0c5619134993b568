package stats

import (
	"context"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bucket is one labelled count.
type Bucket struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// Repository runs the aggregate queries behind the admin dashboards. The
// accompaniment query relies on Postgres unnest.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// TopCities counts approved profiles per city.
func (r *Repository) TopCities(ctx context.Context, limit int) ([]Bucket, error) {
	var rows []Bucket
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Select("city AS label, COUNT(*) AS total").
		Where("status = ?", enums.ProfileStatusApproved).
		Group("city").
		Order("total DESC").
		Order("label ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// TopAccompaniments counts approved profiles per accompaniment type.
func (r *Repository) TopAccompaniments(ctx context.Context, limit int) ([]Bucket, error) {
	var rows []Bucket
	err := r.db.WithContext(ctx).Raw(`
		SELECT kind AS label, COUNT(*) AS total
		FROM profiles p, unnest(p.accompaniment_types) AS kind
		WHERE p.status = ?
		GROUP BY kind
		ORDER BY total DESC, label ASC
		LIMIT ?`, enums.ProfileStatusApproved, limit).
		Scan(&rows).Error
	return rows, err
}

// StatusTotals counts every profile per moderation status.
func (r *Repository) StatusTotals(ctx context.Context) ([]Bucket, error) {
	var rows []Bucket
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Select("status AS label, COUNT(*) AS total").
		Group("status").
		Order("label ASC").
		Scan(&rows).Error
	return rows, err
}

// ProfileOwners returns which of the given accounts own a profile.
func (r *Repository) ProfileOwners(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{}, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var owners []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id IN ?", userIDs).
		Pluck("user_id", &owners).Error; err != nil {
		return nil, err
	}
	for _, id := range owners {
		out[id] = struct{}{}
	}
	return out, nil
}
