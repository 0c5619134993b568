package enums

import "fmt"

// MediaType distinguishes the media kinds a profile can publish.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

var validMediaTypes = []MediaType{
	MediaTypeImage,
	MediaTypeVideo,
}

// String implements fmt.Stringer.
func (s MediaType) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s MediaType) IsValid() bool {
	for _, candidate := range validMediaTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseMediaType converts raw input into a MediaType.
func ParseMediaType(value string) (MediaType, error) {
	for _, candidate := range validMediaTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media type %q", value)
}
