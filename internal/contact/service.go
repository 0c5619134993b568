package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/pagination"
)

// SubmitInput is the public contact form.
type SubmitInput struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Email   string  `json:"email" validate:"required,email,max=254"`
	Subject *string `json:"subject" validate:"omitempty,max=200"`
	Message string  `json:"message" validate:"required,max=5000"`
}

type UpdateInput struct {
	Status string `json:"status" validate:"required,oneof=new read replied archived"`
}

type SubmissionDTO struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Subject   *string             `json:"subject,omitempty"`
	Message   string              `json:"message"`
	Status    enums.ContactStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type ListResult struct {
	Items      []SubmissionDTO `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func fromModel(m *models.ContactSubmission) SubmissionDTO {
	return SubmissionDTO{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type submissionRepository interface {
	Create(ctx context.Context, submission *models.ContactSubmission) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContactStatus) (*models.ContactSubmission, error)
	List(ctx context.Context, status enums.ContactStatus, params pagination.Params) ([]models.ContactSubmission, string, error)
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service handles the public contact form and the staff inbox.
type Service interface {
	Submit(ctx context.Context, clientIP string, input SubmitInput) (*SubmissionDTO, error)
	List(ctx context.Context, session auth.Session, status string, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, session auth.Session, id uuid.UUID, input UpdateInput) (*SubmissionDTO, error)
}

type ServiceParams struct {
	Repo    submissionRepository
	Limiter rateLimiter
	Limit   int
	Window  time.Duration
	Logger  *logger.Logger
}

type service struct {
	repo     submissionRepository
	limiter  rateLimiter
	limit    int64
	window   time.Duration
	validate *validator.Validate
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("contact repository required")
	}
	window := params.Window
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &service{
		repo:     params.Repo,
		limiter:  params.Limiter,
		limit:    int64(params.Limit),
		window:   window,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logg:     params.Logger,
	}, nil
}

// Submit stores a public message. Callers are limited per client IP.
func (s *service) Submit(ctx context.Context, clientIP string, input SubmitInput) (*SubmissionDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Message = strings.TrimSpace(input.Message)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	if s.limiter != nil && s.limit > 0 && clientIP != "" {
		ok, _, err := s.limiter.FixedWindowAllow(ctx, "contact:"+clientIP, s.limit, s.window)
		switch {
		case err != nil:
			if s.logg != nil {
				s.logg.Error(ctx, "contact.rate_limit.unavailable", err)
			}
		case !ok:
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many messages, try again later").
				WithDetails(map[string]any{"retry_after_seconds": int(s.window.Seconds())})
		}
	}

	var subject *string
	if input.Subject != nil {
		if v := strings.TrimSpace(*input.Subject); v != "" {
			subject = &v
		}
	}
	row := &models.ContactSubmission{
		Name:    input.Name,
		Email:   input.Email,
		Subject: subject,
		Message: input.Message,
		Status:  enums.ContactStatusNew,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store contact submission")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "submission_id", row.ID.String()), "contact.submitted")
	}
	dto := fromModel(row)
	return &dto, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func (s *service) List(ctx context.Context, session auth.Session, status string, params pagination.Params) (*ListResult, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	var filter enums.ContactStatus
	if raw := strings.TrimSpace(status); raw != "" && raw != "all" {
		parsed, err := enums.ParseContactStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter = parsed
	}
	rows, next, err := s.repo.List(ctx, filter, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact submissions")
	}
	items := make([]SubmissionDTO, 0, len(rows))
	for i := range rows {
		items = append(items, fromModel(&rows[i]))
	}
	return &ListResult{Items: items, NextCursor: next}, nil
}

func (s *service) Update(ctx context.Context, session auth.Session, id uuid.UUID, input UpdateInput) (*SubmissionDTO, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	status, err := enums.ParseContactStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contact status")
	}
	row, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "submission not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact submission")
	}
	dto := fromModel(row)
	return &dto, nil
}
