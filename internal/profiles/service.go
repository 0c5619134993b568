package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/internal/media"
	"github.com/contactalia/contactalia-backend/pkg/db"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/pagination"
	"github.com/contactalia/contactalia-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	viewDedupWindow = 30 * time.Minute
	logPageSize     = 200
)

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	FindByIDForUpdateWithTx(tx *gorm.DB, id uuid.UUID) (*models.Profile, error)
	FindByUserIDForUpdateWithTx(tx *gorm.DB, userID uuid.UUID) (*models.Profile, error)
	CreateWithTx(tx *gorm.DB, profile *models.Profile) error
	UpdateWithTx(tx *gorm.DB, profile *models.Profile) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	ListPublic(ctx context.Context, filters PublicFilters, params pagination.Params) ([]models.Profile, string, error)
	ListByStatus(ctx context.Context, status enums.ProfileStatus, params pagination.Params) ([]models.Profile, string, error)
}

type moderationLog interface {
	AppendWithTx(tx *gorm.DB, entry *models.ModerationLog) error
	ListByProfile(ctx context.Context, profileID uuid.UUID, limit int) ([]models.ModerationLog, error)
}

type galleryProvider interface {
	Gallery(ctx context.Context, profileID uuid.UUID, viewer entitlements.Viewer) (*media.Gallery, error)
}

type viewDeduper interface {
	DedupKey(scope string, parts ...string) string
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes profile operations for owners, visitors and staff.
type Service interface {
	UpsertOwn(ctx context.Context, session auth.Session, input UpsertInput) (*ProfileDTO, bool, error)
	GetOwn(ctx context.Context, session auth.Session) (*ProfileDTO, error)
	GetForViewer(ctx context.Context, session auth.Session, id uuid.UUID, viewerKey string) (*ProfileDetail, error)
	ListPublic(ctx context.Context, filters PublicFilters, params pagination.Params) (*ListResult, error)
	ListForAdmin(ctx context.Context, session auth.Session, status string, params pagination.Params) (*ListResult, error)
	Moderate(ctx context.Context, session auth.Session, id uuid.UUID, input ModerationInput) (*ProfileDTO, error)
	SetVerification(ctx context.Context, session auth.Session, id uuid.UUID, input VerificationInput) (*ProfileDTO, error)
	ListLogs(ctx context.Context, session auth.Session, id uuid.UUID) ([]ModerationLogDTO, error)
}

// ServiceParams groups dependencies for the profile service.
type ServiceParams struct {
	Repo              profileRepository
	Logs              moderationLog
	Gallery           galleryProvider
	Views             viewDeduper
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

// ProfileDetail is the public detail view with its filtered gallery.
type ProfileDetail struct {
	*ProfileDTO
	Gallery *media.Gallery `json:"gallery"`
}

type service struct {
	repo     profileRepository
	logs     moderationLog
	gallery  galleryProvider
	views    viewDeduper
	txRunner txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a profile service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Logs == nil {
		return nil, fmt.Errorf("moderation log repository required")
	}
	if params.Gallery == nil {
		return nil, fmt.Errorf("gallery provider required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		logs:     params.Logs,
		gallery:  params.Gallery,
		views:    params.Views,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// UpsertOwn creates the caller's profile or updates it in place. The
// boolean reports whether a new row was created. Status is never changed
// by an owner edit.
func (s *service) UpsertOwn(ctx context.Context, session auth.Session, input UpsertInput) (*ProfileDTO, bool, error) {
	if !session.Authenticated {
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := validateUpsert(input); err != nil {
		return nil, false, err
	}

	var (
		saved   *models.Profile
		created bool
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		existing, err := s.repo.FindByUserIDForUpdateWithTx(tx, session.AccountID)
		switch {
		case err == nil:
			input.apply(existing)
			if err := s.repo.UpdateWithTx(tx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
			}
			saved = existing
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}

		profile := &models.Profile{
			UserID:     session.AccountID,
			Status:     enums.ProfileStatusPending,
			PublicPlan: string(publicTier(session)),
		}
		input.apply(profile)
		if err := s.repo.CreateWithTx(tx, profile); err != nil {
			if db.IsUniqueViolation(err, "profiles_user_id_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "profile already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
		}
		saved = profile
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithProfileID(ctx, saved.ID.String())
		if created {
			s.logg.Info(logCtx, "profile.created")
		} else {
			s.logg.Info(logCtx, "profile.updated")
		}
	}
	return FromModel(saved), created, nil
}

func publicTier(session auth.Session) enums.PlanTier {
	if session.EffectiveTier == "" {
		return enums.PlanTierFree
	}
	return session.EffectiveTier
}

func validateUpsert(input UpsertInput) error {
	details := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(input.City) == "" {
		details["city"] = "is required"
	}
	if !isDigits(normalizePhone(input.Phone), 9) {
		details["phone"] = "must have 9 digits"
	}
	if input.PostalCode != nil {
		if code := strings.TrimSpace(*input.PostalCode); code != "" && !isDigits(code, 5) {
			details["postal_code"] = "must have 5 digits"
		}
	}
	if input.Age != nil && *input.Age < 18 {
		details["age"] = "must be at least 18"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func isDigits(value string, length int) bool {
	if len(value) != length {
		return false
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (s *service) GetOwn(ctx context.Context, session auth.Session) (*ProfileDTO, error) {
	if !session.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	profile, err := s.repo.FindByUserID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return FromModel(profile), nil
}

// GetForViewer returns the detail view with the gallery filtered for the
// caller. viewerKey identifies anonymous viewers for view de-duplication.
func (s *service) GetForViewer(ctx context.Context, session auth.Session, id uuid.UUID, viewerKey string) (*ProfileDetail, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if err := visibility.EnsureProfileVisible(visibility.ProfileVisibilityInput{
		Profile:  profile,
		ViewerID: session.AccountID,
		Staff:    session.IsStaff(),
	}); err != nil {
		return nil, err
	}

	gallery, err := s.gallery.Gallery(ctx, profile.ID, session.Viewer())
	if err != nil {
		return nil, err
	}

	if !session.Owns(profile.UserID) {
		if s.countView(ctx, session, profile.ID, viewerKey) {
			profile.ViewsCount++
		}
	}
	return &ProfileDetail{ProfileDTO: FromModel(profile), Gallery: gallery}, nil
}

// countView increments views_count at most once per viewer per window.
// Failures are logged and never fail the read.
func (s *service) countView(ctx context.Context, session auth.Session, profileID uuid.UUID, viewerKey string) bool {
	if s.views != nil {
		who := viewerKey
		if session.Authenticated {
			who = session.AccountID.String()
		}
		if who != "" {
			first, err := s.views.FirstSeen(ctx, s.views.DedupKey("profile_view", profileID.String(), who), viewDedupWindow)
			if err != nil {
				s.warn(ctx, "profile.view.dedup_failed", profileID)
			} else if !first {
				return false
			}
		}
	}
	if err := s.repo.IncrementViews(ctx, profileID); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithProfileID(ctx, profileID.String()), "profile.view.increment_failed", err)
		}
		return false
	}
	return true
}

func (s *service) ListPublic(ctx context.Context, filters PublicFilters, params pagination.Params) (*ListResult, error) {
	rows, next, err := s.repo.ListPublic(ctx, filters, params)
	if err != nil {
		return nil, listError(err)
	}
	return toListResult(rows, next), nil
}

func (s *service) ListForAdmin(ctx context.Context, session auth.Session, status string, params pagination.Params) (*ListResult, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	var filter enums.ProfileStatus
	if raw := strings.TrimSpace(status); raw != "" && raw != "all" {
		parsed, err := enums.ParseProfileStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter = parsed
	}
	rows, next, err := s.repo.ListByStatus(ctx, filter, params)
	if err != nil {
		return nil, listError(err)
	}
	return toListResult(rows, next), nil
}

func listError(err error) error {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list profiles")
}

func toListResult(rows []models.Profile, next string) *ListResult {
	items := make([]ProfileDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ListResult{Items: items, NextCursor: next}
}

// Moderate applies a moderator command and logs it in the same transaction.
func (s *service) Moderate(ctx context.Context, session auth.Session, id uuid.UUID, input ModerationInput) (*ProfileDTO, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	target, err := ParseModerationCommand(input.Action)
	if err != nil {
		return nil, err
	}
	reason := trimmedOrNil(input.Reason)

	var updated *models.Profile
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := s.lockProfile(tx, id)
		if err != nil {
			return err
		}
		if err := Transition(profile.Status, target); err != nil {
			return err
		}
		profile.Status = target
		if err := s.repo.UpdateWithTx(tx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile status")
		}
		if err := s.logs.AppendWithTx(tx, &models.ModerationLog{
			ProfileID:   profile.ID,
			ModeratorID: session.AccountID,
			Action:      actionFor(target),
			Reason:      reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append moderation log")
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithProfileID(ctx, id.String()), map[string]any{
			"moderator_id": session.AccountID.String(),
			"status":       string(target),
		})
		s.logg.Info(logCtx, "profile.moderated")
	}
	return FromModel(updated), nil
}

// SetVerification toggles the verified flags, logging each flag that changes.
func (s *service) SetVerification(ctx context.Context, session auth.Session, id uuid.UUID, input VerificationInput) (*ProfileDTO, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if input.Verified == nil && input.PhoneVerified == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verified or phone_verified is required")
	}

	var updated *models.Profile
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := s.lockProfile(tx, id)
		if err != nil {
			return err
		}

		var actions []enums.ModerationAction
		if input.Verified != nil && *input.Verified != profile.Verified {
			profile.Verified = *input.Verified
			if profile.Verified {
				actions = append(actions, enums.ModerationActionVerified)
			} else {
				actions = append(actions, enums.ModerationActionUnverified)
			}
		}
		if input.PhoneVerified != nil && *input.PhoneVerified != profile.PhoneVerified {
			profile.PhoneVerified = *input.PhoneVerified
			if profile.PhoneVerified {
				at := s.now().UTC()
				by := session.AccountID
				profile.PhoneVerifiedAt = &at
				profile.PhoneVerifiedBy = &by
				actions = append(actions, enums.ModerationActionPhoneVerified)
			} else {
				profile.PhoneVerifiedAt = nil
				profile.PhoneVerifiedBy = nil
				actions = append(actions, enums.ModerationActionPhoneUnverified)
			}
		}
		updated = profile
		if len(actions) == 0 {
			return nil
		}

		if err := s.repo.UpdateWithTx(tx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update verification")
		}
		for _, action := range actions {
			if err := s.logs.AppendWithTx(tx, &models.ModerationLog{
				ProfileID:   profile.ID,
				ModeratorID: session.AccountID,
				Action:      action,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append moderation log")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) ListLogs(ctx context.Context, session auth.Session, id uuid.UUID) ([]ModerationLogDTO, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	rows, err := s.logs.ListByProfile(ctx, id, logPageSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list moderation logs")
	}
	out := make([]ModerationLogDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, logFromModel(row))
	}
	return out, nil
}

func (s *service) lockProfile(tx *gorm.DB, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindByIDForUpdateWithTx(tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return profile, nil
}

func (s *service) warn(ctx context.Context, msg string, profileID uuid.UUID) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithProfileID(ctx, profileID.String()), msg)
}
