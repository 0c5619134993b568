package visibility

import (
	"strings"

	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/google/uuid"
)

// ProfileVisibilityInput drives the shared visibility checks for profile reads.
type ProfileVisibilityInput struct {
	Profile  *models.Profile
	ViewerID uuid.UUID
	Staff    bool
}

// EnsureProfileVisible hides non-approved profiles from everyone except the
// owner and staff. Hidden profiles surface as not found.
func EnsureProfileVisible(input ProfileVisibilityInput) error {
	if input.Profile == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	if input.Staff {
		return nil
	}
	if input.ViewerID != uuid.Nil && input.Profile.UserID == input.ViewerID {
		return nil
	}
	if input.Profile.Status != enums.ProfileStatusApproved {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return nil
}

// NormalizeCity folds a city filter for comparison.
func NormalizeCity(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
