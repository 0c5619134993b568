package enums

import "fmt"

// ProfileStatus mirrors the moderation state of an advertiser profile.
type ProfileStatus string

const (
	ProfileStatusPending   ProfileStatus = "pending"
	ProfileStatusApproved  ProfileStatus = "approved"
	ProfileStatusRejected  ProfileStatus = "rejected"
	ProfileStatusSuspended ProfileStatus = "suspended"
)

var validProfileStatuses = []ProfileStatus{
	ProfileStatusPending,
	ProfileStatusApproved,
	ProfileStatusRejected,
	ProfileStatusSuspended,
}

// String implements fmt.Stringer.
func (s ProfileStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ProfileStatus) IsValid() bool {
	for _, candidate := range validProfileStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProfileStatus converts raw input into a ProfileStatus.
func ParseProfileStatus(value string) (ProfileStatus, error) {
	for _, candidate := range validProfileStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid profile status %q", value)
}
