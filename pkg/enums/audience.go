package enums

import "fmt"

// Audience is the customer segment a plan was sold to.
type Audience string

const (
	AudienceAdvertiser Audience = "anunciante"
	AudienceVisitor    Audience = "visitante"
)

var validAudiences = []Audience{
	AudienceAdvertiser,
	AudienceVisitor,
}

// String implements fmt.Stringer.
func (s Audience) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s Audience) IsValid() bool {
	for _, candidate := range validAudiences {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAudience converts raw input into an Audience.
func ParseAudience(value string) (Audience, error) {
	for _, candidate := range validAudiences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audience %q", value)
}
