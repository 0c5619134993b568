package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const privateURLTTL = 15 * time.Minute

type mediaRepository interface {
	CountsForProfile(tx *gorm.DB, profileID uuid.UUID) (entitlements.Counts, error)
	Counts(ctx context.Context, profileID uuid.UUID) (entitlements.Counts, error)
	NextPositionWithTx(tx *gorm.DB, profileID uuid.UUID) (int, error)
	CreateWithTx(tx *gorm.DB, item *models.ProfileMedia) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProfileMedia, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.ProfileMedia, error)
	UpdateVisibilityWithTx(tx *gorm.DB, id uuid.UUID, v enums.MediaVisibility) error
	UpdatePositionsWithTx(tx *gorm.DB, profileID uuid.UUID, positions map[uuid.UUID]int) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileMedia, error)
}

type profileLocker interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	FindByIDForUpdateWithTx(tx *gorm.DB, id uuid.UUID) (*models.Profile, error)
}

// BlobStore is the subset of the object store the media service uses.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type decisionRecorder interface {
	Record(action string, allowed bool, reason string)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes media operations for owners, staff and gallery readers.
type Service interface {
	Upload(ctx context.Context, session auth.Session, input UploadInput) (*MediaDTO, error)
	ChangeVisibility(ctx context.Context, session auth.Session, mediaID uuid.UUID, target string) (*MediaDTO, error)
	Delete(ctx context.Context, session auth.Session, mediaID uuid.UUID) error
	DeleteAsStaff(ctx context.Context, session auth.Session, mediaID uuid.UUID) error
	Reorder(ctx context.Context, session auth.Session, ids []uuid.UUID) error
	ListOwn(ctx context.Context, session auth.Session) (*OwnerMedia, error)
	Gallery(ctx context.Context, profileID uuid.UUID, viewer entitlements.Viewer) (*Gallery, error)
}

// ServiceParams groups dependencies for the media service.
type ServiceParams struct {
	Repo              mediaRepository
	Profiles          profileLocker
	Blobs             BlobStore
	TransactionRunner txRunner
	Normalize         NormalizeOptions
	MaxUploadBytes    int64
	Metrics           decisionRecorder
	Logger            *logger.Logger
}

type service struct {
	repo      mediaRepository
	profiles  profileLocker
	blobs     BlobStore
	txRunner  txRunner
	normalize NormalizeOptions
	maxBytes  int64
	metrics   decisionRecorder
	logg      *logger.Logger
}

// NewService constructs a media service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	maxBytes := params.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &service{
		repo:      params.Repo,
		profiles:  params.Profiles,
		blobs:     params.Blobs,
		txRunner:  params.TransactionRunner,
		normalize: params.Normalize,
		maxBytes:  maxBytes,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// Upload stores the blob first and then inserts the row under the profile
// lock, re-checking the quota. A denied or failed insert removes the blob.
func (s *service) Upload(ctx context.Context, session auth.Session, input UploadInput) (*MediaDTO, error) {
	profile, err := s.ownProfile(ctx, session)
	if err != nil {
		return nil, err
	}
	if int64(len(input.Data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	target, err := parseVisibility(input.Visibility)
	if err != nil {
		return nil, err
	}

	normalized, err := Normalize(input.Data, s.normalize)
	if err != nil {
		return nil, err
	}

	plan := entitlements.MediaPlan(session.EffectiveTier)
	precount, err := s.repo.Counts(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count media")
	}
	if decision := plan.CanSetVisibility(normalized.MediaType, target, precount); !decision.Allowed {
		return nil, s.deny(ctx, session, "media.upload", profile.ID, decision)
	}

	key := storageKey(session.AccountID, profile.ID, normalized.MediaType, input.FileName, normalized.Ext)
	if err := s.blobs.Put(ctx, key, normalized.MimeType, bytes.NewReader(normalized.Data), int64(len(normalized.Data))); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload blob")
	}

	publicURL := s.blobs.PublicURL(key)
	item := &models.ProfileMedia{
		ProfileID:   profile.ID,
		MediaType:   normalized.MediaType,
		Visibility:  target,
		StoragePath: key,
		PublicURL:   &publicURL,
		MimeType:    normalized.MimeType,
		SizeBytes:   int64(len(normalized.Data)),
	}

	var denied *entitlements.Decision
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.profiles.FindByIDForUpdateWithTx(tx, profile.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock profile")
		}
		counts, err := s.repo.CountsForProfile(tx, profile.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count media")
		}
		if decision := plan.CanSetVisibility(item.MediaType, target, counts); !decision.Allowed {
			denied = &decision
			return decision.Err()
		}
		position, err := s.repo.NextPositionWithTx(tx, profile.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "next position")
		}
		item.Position = position
		if err := s.repo.CreateWithTx(tx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert media")
		}
		return nil
	})
	if err != nil {
		s.discardBlob(ctx, key)
		if denied != nil {
			return nil, s.deny(ctx, session, "media.upload", profile.ID, *denied)
		}
		return nil, err
	}

	s.record("media.upload", entitlements.Allow())
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithProfileID(ctx, profile.ID.String()), map[string]any{
			"media_id":   item.ID.String(),
			"media_type": string(item.MediaType),
			"visibility": string(item.Visibility),
		})
		s.logg.Info(logCtx, "media.uploaded")
	}
	dto := fromModel(item, publicURL, true)
	return &dto, nil
}

// ChangeVisibility moves an item to another visibility under the profile
// lock. Moves within the same bucket do not count the item twice.
func (s *service) ChangeVisibility(ctx context.Context, session auth.Session, mediaID uuid.UUID, raw string) (*MediaDTO, error) {
	profile, err := s.ownProfile(ctx, session)
	if err != nil {
		return nil, err
	}
	target, err := enums.ParseMediaVisibility(strings.TrimSpace(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visibility")
	}
	plan := entitlements.MediaPlan(session.EffectiveTier)

	var (
		item    *models.ProfileMedia
		denied  *entitlements.Decision
		changed bool
	)
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.profiles.FindByIDForUpdateWithTx(tx, profile.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock profile")
		}
		found, err := s.repo.FindByIDWithTx(tx, mediaID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
		}
		if found.ProfileID != profile.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		item = found
		if found.Visibility == target {
			return nil
		}

		counts, err := s.repo.CountsForProfile(tx, profile.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count media")
		}
		if entitlements.BucketFor(found.Visibility) == entitlements.BucketFor(target) {
			counts.Add(found.MediaType, found.Visibility, -1)
		}
		if decision := plan.CanSetVisibility(found.MediaType, target, counts); !decision.Allowed {
			denied = &decision
			return decision.Err()
		}
		if err := s.repo.UpdateVisibilityWithTx(tx, found.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update visibility")
		}
		found.Visibility = target
		changed = true
		return nil
	})
	if err != nil {
		if denied != nil {
			return nil, s.deny(ctx, session, "media.visibility", profile.ID, *denied)
		}
		return nil, err
	}

	if changed {
		s.record("media.visibility", entitlements.Allow())
	}
	dto := fromModel(item, s.blobs.PublicURL(item.StoragePath), true)
	return &dto, nil
}

// Delete removes one of the caller's items: blob first, then the row.
func (s *service) Delete(ctx context.Context, session auth.Session, mediaID uuid.UUID) error {
	profile, err := s.ownProfile(ctx, session)
	if err != nil {
		return err
	}
	item, err := s.findItem(ctx, mediaID)
	if err != nil {
		return err
	}
	if item.ProfileID != profile.ID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	return s.remove(ctx, session, item)
}

// DeleteAsStaff lets moderators remove any item.
func (s *service) DeleteAsStaff(ctx context.Context, session auth.Session, mediaID uuid.UUID) error {
	if !session.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	item, err := s.findItem(ctx, mediaID)
	if err != nil {
		return err
	}
	return s.remove(ctx, session, item)
}

func (s *service) remove(ctx context.Context, session auth.Session, item *models.ProfileMedia) error {
	if err := s.blobs.Delete(ctx, item.StoragePath); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete blob")
	}
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media row")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithProfileID(ctx, item.ProfileID.String()), map[string]any{
			"media_id": item.ID.String(),
			"actor_id": session.AccountID.String(),
		})
		s.logg.Info(logCtx, "media.deleted")
	}
	return nil
}

// Reorder assigns positions 1..n following ids. Items left out keep their
// position.
func (s *service) Reorder(ctx context.Context, session auth.Session, ids []uuid.UUID) error {
	profile, err := s.ownProfile(ctx, session)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "ids are required")
	}
	positions := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		if _, dup := positions[id]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate media id %s", id))
		}
		positions[id] = i + 1
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.profiles.FindByIDForUpdateWithTx(tx, profile.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock profile")
		}
		if err := s.repo.UpdatePositionsWithTx(tx, profile.ID, positions); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reorder media")
		}
		return nil
	})
}

func (s *service) ListOwn(ctx context.Context, session auth.Session) (*OwnerMedia, error) {
	profile, err := s.ownProfile(ctx, session)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProfile(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	counts := entitlements.Counts{}
	items := make([]MediaDTO, 0, len(rows))
	for i := range rows {
		counts.Add(rows[i].MediaType, rows[i].Visibility, 1)
		items = append(items, fromModel(&rows[i], s.blobs.PublicURL(rows[i].StoragePath), true))
	}
	plan := entitlements.MediaPlan(session.EffectiveTier)
	planName := session.Plan
	if planName == "" {
		planName = string(enums.PlanTierFree)
	}
	return &OwnerMedia{
		Items:  items,
		Counts: counts,
		Limits: plan.Media,
		Plan:   planName,
		Tier:   plan.Tier,
	}, nil
}

// Gallery returns the items the viewer may see. Non-public items are served
// through short-lived signed URLs.
func (s *service) Gallery(ctx context.Context, profileID uuid.UUID, viewer entitlements.Viewer) (*Gallery, error) {
	rows, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	visible, hidden := entitlements.FilterGallery(viewer, rows, func(m models.ProfileMedia) enums.MediaVisibility {
		return m.Visibility
	})
	items := make([]MediaDTO, 0, len(visible))
	for i := range visible {
		url, err := s.urlFor(ctx, &visible[i])
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign media url")
		}
		items = append(items, fromModel(&visible[i], url, false))
	}
	return &Gallery{Items: items, Hidden: hidden}, nil
}

func (s *service) urlFor(ctx context.Context, item *models.ProfileMedia) (string, error) {
	if item.Visibility == enums.MediaVisibilityPublic {
		if item.PublicURL != nil && *item.PublicURL != "" {
			return *item.PublicURL, nil
		}
		return s.blobs.PublicURL(item.StoragePath), nil
	}
	return s.blobs.PresignGet(ctx, item.StoragePath, privateURLTTL)
}

func (s *service) ownProfile(ctx context.Context, session auth.Session) (*models.Profile, error) {
	if !session.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	profile, err := s.profiles.FindByUserID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "create your profile before uploading media")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return profile, nil
}

func (s *service) findItem(ctx context.Context, id uuid.UUID) (*models.ProfileMedia, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
	}
	return item, nil
}

// deny logs an entitlement denial at warn level and returns its error.
func (s *service) deny(ctx context.Context, session auth.Session, action string, profileID uuid.UUID, decision entitlements.Decision) error {
	s.record(action, decision)
	if s.logg != nil {
		logCtx := s.logg.WithPlan(s.logg.WithProfileID(ctx, profileID.String()), session.Plan)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"reason":        string(decision.Reason),
			"required_tier": string(decision.RequiredTier),
			"limit":         decision.Limit,
		})
		s.logg.Warn(logCtx, action+".denied")
	}
	return decision.Err()
}

func (s *service) record(action string, decision entitlements.Decision) {
	if s.metrics == nil {
		return
	}
	s.metrics.Record(action, decision.Allowed, string(decision.Reason))
}

// discardBlob removes an uploaded blob whose row was never written. A
// failure leaves an orphan for the cleanup job.
func (s *service) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "storage_path", key), "media.blob.cleanup_failed", err)
	}
}

func parseVisibility(raw string) (enums.MediaVisibility, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return enums.MediaVisibilityPublic, nil
	}
	v, err := enums.ParseMediaVisibility(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visibility")
	}
	return v, nil
}

// storageKey builds {owner}/{profile}/{type}/{uuid}-{name}{ext}.
func storageKey(ownerID, profileID uuid.UUID, mediaType enums.MediaType, fileName, ext string) string {
	name := sanitizeFileName(fileName)
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s/%s/%s-%s%s", ownerID, profileID, mediaType, uuid.NewString(), name, ext)
}
