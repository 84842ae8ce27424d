package core

import "strconv"

// Role is the ordinal role attached to users and API keys. Higher values
// carry strictly more privilege.
type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Ordinal returns the stringified numeric value used in token claims.
func (r Role) Ordinal() string {
	return strconv.Itoa(int(r))
}

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleNone, RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	return r >= minRole
}

// ParseRole accepts both the ordinal form used in claims ("2") and the
// symbolic form ("admin"). Unknown input resolves to RoleNone.
func ParseRole(s string) Role {
	switch s {
	case "none":
		return RoleNone
	case "user":
		return RoleUser
	case "admin":
		return RoleAdmin
	}

	if n, err := strconv.Atoi(s); err == nil {
		r := Role(n)
		if r.IsValid() {
			return r
		}
	}

	return RoleNone
}
