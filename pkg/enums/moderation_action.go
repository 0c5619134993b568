package enums

import "fmt"

// ModerationAction is the verb recorded in moderation logs.
type ModerationAction string

const (
	ModerationActionApproved        ModerationAction = "approved"
	ModerationActionRejected        ModerationAction = "rejected"
	ModerationActionSuspended       ModerationAction = "suspended"
	ModerationActionPending         ModerationAction = "pending"
	ModerationActionVerified        ModerationAction = "verified"
	ModerationActionUnverified      ModerationAction = "unverified"
	ModerationActionPhoneVerified   ModerationAction = "phone_verified"
	ModerationActionPhoneUnverified ModerationAction = "phone_unverified"
)

var validModerationActions = []ModerationAction{
	ModerationActionApproved,
	ModerationActionRejected,
	ModerationActionSuspended,
	ModerationActionPending,
	ModerationActionVerified,
	ModerationActionUnverified,
	ModerationActionPhoneVerified,
	ModerationActionPhoneUnverified,
}

// String implements fmt.Stringer.
func (s ModerationAction) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ModerationAction) IsValid() bool {
	for _, candidate := range validModerationActions {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseModerationAction converts raw input into a ModerationAction.
func ParseModerationAction(value string) (ModerationAction, error) {
	for _, candidate := range validModerationActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid moderation action %q", value)
}
