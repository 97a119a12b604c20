package domain

import "strings"

// Role is the UI gating label attached to a user's email. It is never a
// security boundary: the backend re-validates every request on its own.
type Role string

const (
	RoleUser      Role = "user"
	RoleDecorator Role = "decorator"
	RoleAdmin     Role = "admin"
)

// DefaultRole is the least-privileged role, used whenever the real one is unknown.
const DefaultRole = RoleUser

// ParseRole normalizes a backend role string. Empty or unknown values fall
// back to DefaultRole.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleDecorator:
		return RoleDecorator
	default:
		return DefaultRole
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDecorator, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
