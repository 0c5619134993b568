package enums

import "fmt"

// MediaVisibility is the audience tier a media item is published to.
type MediaVisibility string

const (
	MediaVisibilityPublic     MediaVisibility = "public"
	MediaVisibilityRegistered MediaVisibility = "registered"
	MediaVisibilityPaid       MediaVisibility = "paid"
	MediaVisibilityVip        MediaVisibility = "vip"
)

var validMediaVisibilities = []MediaVisibility{
	MediaVisibilityPublic,
	MediaVisibilityRegistered,
	MediaVisibilityPaid,
	MediaVisibilityVip,
}

// String implements fmt.Stringer.
func (s MediaVisibility) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s MediaVisibility) IsValid() bool {
	for _, candidate := range validMediaVisibilities {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseMediaVisibility converts raw input into a MediaVisibility.
func ParseMediaVisibility(value string) (MediaVisibility, error) {
	for _, candidate := range validMediaVisibilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media visibility %q", value)
}
