package profiles

import (
	"fmt"
	"strings"

	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

// CanTransition reports whether a moderator may move a profile from one
// status to another. Every known status is reachable from every other one;
// re-applying the current status is refused so it never writes a log entry.
func CanTransition(from, to enums.ProfileStatus) bool {
	return from.IsValid() && to.IsValid() && from != to
}

// Transition returns a STATE_CONFLICT error when the move is not allowed.
func Transition(from, to enums.ProfileStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	msg := fmt.Sprintf("cannot move profile from %s to %s", from, to)
	if from == to {
		msg = fmt.Sprintf("profile is already %s", from)
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).WithDetails(map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}

// ModerationCommand is the verb a moderator submits.
type ModerationCommand string

const (
	CommandApprove ModerationCommand = "approve"
	CommandReject  ModerationCommand = "reject"
	CommandSuspend ModerationCommand = "suspend"
	CommandRestore ModerationCommand = "restore"
	CommandPending ModerationCommand = "pending"
)

var commandTargets = map[ModerationCommand]enums.ProfileStatus{
	CommandApprove: enums.ProfileStatusApproved,
	CommandReject:  enums.ProfileStatusRejected,
	CommandSuspend: enums.ProfileStatusSuspended,
	CommandRestore: enums.ProfileStatusApproved,
	CommandPending: enums.ProfileStatusPending,
}

// ParseModerationCommand maps a command to the status it targets.
func ParseModerationCommand(raw string) (enums.ProfileStatus, error) {
	target, ok := commandTargets[ModerationCommand(strings.ToLower(strings.TrimSpace(raw)))]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown moderation action %q", raw))
	}
	return target, nil
}

// actionFor names the log entry written for a status change.
func actionFor(status enums.ProfileStatus) enums.ModerationAction {
	switch status {
	case enums.ProfileStatusApproved:
		return enums.ModerationActionApproved
	case enums.ProfileStatusRejected:
		return enums.ModerationActionRejected
	case enums.ProfileStatusSuspended:
		return enums.ModerationActionSuspended
	default:
		return enums.ModerationActionPending
	}
}
