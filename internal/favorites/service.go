package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	"github.com/contactalia/contactalia-backend/pkg/db"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type favoritesRepository interface {
	ExistsWithTx(tx *gorm.DB, userID, profileID uuid.UUID) (bool, error)
	CountWithTx(tx *gorm.DB, userID uuid.UUID) (int, error)
	InsertWithTx(tx *gorm.DB, userID, profileID uuid.UUID) error
	Remove(ctx context.Context, userID, profileID uuid.UUID) error
	ListApproved(ctx context.Context, userID uuid.UUID) ([]FavoriteDTO, error)
	ListProfileIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type profileFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type planLookup interface {
	Lookup(ctx context.Context, userID uuid.UUID) subscriptions.Resolution
}

type decisionRecorder interface {
	Record(action string, allowed bool, reason string)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages an account's saved profiles under its plan's limit.
type Service interface {
	Add(ctx context.Context, session auth.Session, profileID uuid.UUID) error
	Remove(ctx context.Context, session auth.Session, profileID uuid.UUID) error
	List(ctx context.Context, session auth.Session) (*ListDTO, error)
	IDs(ctx context.Context, session auth.Session) (*IDsDTO, error)
}

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	Repo              favoritesRepository
	Profiles          profileFinder
	Plans             planLookup
	TransactionRunner txRunner
	Metrics           decisionRecorder
	Logger            *logger.Logger
}

type service struct {
	repo     favoritesRepository
	profiles profileFinder
	plans    planLookup
	txRunner txRunner
	metrics  decisionRecorder
	logg     *logger.Logger
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("favorites repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile finder required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan lookup required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		profiles: params.Profiles,
		plans:    params.Plans,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Add saves a profile. Saving one already saved succeeds without touching
// the limit.
func (s *service) Add(ctx context.Context, session auth.Session, profileID uuid.UUID) error {
	if !session.Authenticated {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile.Status != enums.ProfileStatusApproved {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}

	limit := s.plans.Lookup(ctx, session.AccountID).FavoritesLimit()

	var denied error
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := db.AdvisoryLock(tx, "favorites:"+session.AccountID.String()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock favorites")
		}
		exists, err := s.repo.ExistsWithTx(tx, session.AccountID, profileID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check favorite")
		}
		if exists {
			return nil
		}
		count, err := s.repo.CountWithTx(tx, session.AccountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count favorites")
		}
		decision := Decide(count, limit)
		s.record(decision.Allowed, string(decision.Reason))
		if !decision.Allowed {
			denied = decision.Err()
			return denied
		}
		if err := s.repo.InsertWithTx(tx, session.AccountID, profileID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert favorite")
		}
		return nil
	})
	if denied != nil {
		if s.logg != nil {
			logCtx := s.logg.WithPlan(s.logg.WithUserID(ctx, session.AccountID.String()), session.Plan)
			logCtx = s.logg.WithFields(logCtx, map[string]any{"profile_id": profileID.String(), "limit": limit})
			s.logg.Warn(logCtx, "favorites.add.denied")
		}
		return denied
	}
	return err
}

// Remove deletes a saved profile; removing one that is not saved succeeds.
func (s *service) Remove(ctx context.Context, session auth.Session, profileID uuid.UUID) error {
	if !session.Authenticated {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.Remove(ctx, session.AccountID, profileID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}

func (s *service) List(ctx context.Context, session auth.Session) (*ListDTO, error) {
	if !session.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	items, err := s.repo.ListApproved(ctx, session.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	return &ListDTO{
		Items: items,
		Count: len(items),
		Limit: s.plans.Lookup(ctx, session.AccountID).FavoritesLimit(),
	}, nil
}

func (s *service) IDs(ctx context.Context, session auth.Session) (*IDsDTO, error) {
	if !session.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ids, err := s.repo.ListProfileIDs(ctx, session.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorite ids")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return &IDsDTO{ProfileIDs: ids}, nil
}

func (s *service) record(allowed bool, reason string) {
	if s.metrics != nil {
		s.metrics.Record("favorite_add", allowed, reason)
	}
}
