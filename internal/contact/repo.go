package contact

import (
	"context"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/contactalia/contactalia-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists contact form submissions.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, submission *models.ContactSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// UpdateStatus returns gorm.ErrRecordNotFound when no row matched.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContactStatus) (*models.ContactSubmission, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ContactSubmission{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var row models.ContactSubmission
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) List(ctx context.Context, status enums.ContactStatus, params pagination.Params) ([]models.ContactSubmission, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).Model(&models.ContactSubmission{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ContactSubmission
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
