package enums

import "fmt"

// AppRole is a staff or member role granted to an account.
type AppRole string

const (
	AppRoleAdmin     AppRole = "admin"
	AppRoleModerator AppRole = "moderator"
	AppRoleUser      AppRole = "user"
)

var validAppRoles = []AppRole{
	AppRoleAdmin,
	AppRoleModerator,
	AppRoleUser,
}

// String implements fmt.Stringer.
func (s AppRole) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s AppRole) IsValid() bool {
	for _, candidate := range validAppRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAppRole converts raw input into a AppRole.
func ParseAppRole(value string) (AppRole, error) {
	for _, candidate := range validAppRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
