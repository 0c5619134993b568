package roles

import (
	"context"
	"fmt"

	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/google/uuid"
)

type repository interface {
	ListRoles(ctx context.Context, userID uuid.UUID) ([]enums.AppRole, error)
	Grant(ctx context.Context, userID uuid.UUID, role enums.AppRole) error
	Revoke(ctx context.Context, userID uuid.UUID, role enums.AppRole) error
}

// Service manages role grants. Callers must already be admins.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]enums.AppRole, error)
	Grant(ctx context.Context, actorID, userID uuid.UUID, role enums.AppRole) error
	Revoke(ctx context.Context, actorID, userID uuid.UUID, role enums.AppRole) error
}

type service struct {
	repo repository
	logg *logger.Logger
}

func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("roles repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]enums.AppRole, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	out, err := s.repo.ListRoles(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list roles")
	}
	return out, nil
}

func (s *service) Grant(ctx context.Context, actorID, userID uuid.UUID, role enums.AppRole) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if err := s.repo.Grant(ctx, userID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant role")
	}
	s.log(ctx, "roles.granted", actorID, userID, role)
	return nil
}

// Revoke refuses to let an admin drop their own admin grant.
func (s *service) Revoke(ctx context.Context, actorID, userID uuid.UUID, role enums.AppRole) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if actorID == userID && role == enums.AppRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot revoke your own admin role")
	}
	if err := s.repo.Revoke(ctx, userID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke role")
	}
	s.log(ctx, "roles.revoked", actorID, userID, role)
	return nil
}

func (s *service) log(ctx context.Context, msg string, actorID, userID uuid.UUID, role enums.AppRole) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"actor_id":       actorID.String(),
		"target_user_id": userID.String(),
		"role":           string(role),
	})
	s.logg.Info(ctx, msg)
}
