package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	Review(ctx context.Context, report *models.Report) error
	List(ctx context.Context, status enums.ReportStatus, params pagination.Params) ([]models.Report, string, error)
}

type profileFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// RateLimiter is the fixed-window limiter backed by Redis.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service files and reviews profile reports.
type Service interface {
	Create(ctx context.Context, session auth.Session, profileID uuid.UUID, input CreateInput) (*ReportDTO, error)
	List(ctx context.Context, session auth.Session, status string, params pagination.Params) (*ListResult, error)
	Review(ctx context.Context, session auth.Session, id uuid.UUID, input ReviewInput) (*ReportDTO, error)
}

// ServiceParams groups dependencies for the reports service.
type ServiceParams struct {
	Repo     reportRepository
	Profiles profileFinder
	Limiter  RateLimiter
	Limit    int
	Window   time.Duration
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     reportRepository
	profiles profileFinder
	limiter  RateLimiter
	limit    int64
	window   time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a reports service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile finder required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	window := params.Window
	if window <= 0 {
		window = time.Hour
	}
	return &service{
		repo:     params.Repo,
		profiles: params.Profiles,
		limiter:  params.Limiter,
		limit:    int64(params.Limit),
		window:   window,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, session auth.Session, profileID uuid.UUID, input CreateInput) (*ReportDTO, error) {
	if !session.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	reason := enums.ReportReasonSpam
	if raw := strings.TrimSpace(input.Reason); raw != "" {
		parsed, err := enums.ParseReportReason(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid report reason")
		}
		reason = parsed
	}

	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if session.Owns(profile.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot report your own profile")
	}

	if err := s.allow(ctx, session.AccountID); err != nil {
		return nil, err
	}

	report := &models.Report{
		ReporterID:  session.AccountID,
		ProfileID:   profile.ID,
		Reason:      reason,
		Description: trimmed(input.Description),
		Status:      enums.ReportStatusPending,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create report")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithProfileID(ctx, profile.ID.String()), map[string]any{
			"report_id": report.ID.String(),
			"reason":    string(reason),
		})
		s.logg.Info(logCtx, "report.created")
	}
	dto := fromModel(report)
	return &dto, nil
}

// allow fails open when Redis is unavailable.
func (s *service) allow(ctx context.Context, reporterID uuid.UUID) error {
	if s.limiter == nil || s.limit <= 0 {
		return nil
	}
	ok, _, err := s.limiter.FixedWindowAllow(ctx, "report:"+reporterID.String(), s.limit, s.window)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, reporterID.String()), "report.rate_limit.unavailable", err)
		}
		return nil
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many reports, try again later").
			WithDetails(map[string]any{"retry_after_seconds": int(s.window.Seconds())})
	}
	return nil
}

func (s *service) List(ctx context.Context, session auth.Session, status string, params pagination.Params) (*ListResult, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	var filter enums.ReportStatus
	if raw := strings.TrimSpace(status); raw != "" && raw != "all" {
		parsed, err := enums.ParseReportStatus(raw)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reports")
	}
	items := make([]ReportDTO, 0, len(rows))
	for i := range rows {
		items = append(items, fromModel(&rows[i]))
	}
	return &ListResult{Items: items, NextCursor: next}, nil
}

// Review records the new status along with who reviewed it and when.
func (s *service) Review(ctx context.Context, session auth.Session, id uuid.UUID, input ReviewInput) (*ReportDTO, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	status, err := enums.ParseReportStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid report status")
	}
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load report")
	}

	at := s.now().UTC()
	by := session.AccountID
	report.Status = status
	report.ReviewedAt = &at
	report.ReviewedBy = &by
	if err := s.repo.Review(ctx, report); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update report")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"report_id":   report.ID.String(),
			"status":      string(status),
			"reviewed_by": by.String(),
		})
		s.logg.Info(logCtx, "report.reviewed")
	}
	dto := fromModel(report)
	return &dto, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
