package models

import (
	"errors"
	"strings"
)

// Role is the position a student holds inside a club.
type Role string

const (
	RoleMember        Role = "Member"
	RoleOfficer       Role = "Officer"
	RolePresident     Role = "President"
	RoleVicePresident Role = "Vice President"
	RoleTreasurer     Role = "Treasurer"
	RoleSecretary     Role = "Secretary"
)

// Roles is the canonical, ordered list of club roles.
var Roles = []Role{
	RoleMember,
	RoleOfficer,
	RolePresident,
	RoleVicePresident,
	RoleTreasurer,
	RoleSecretary,
}

// ErrInvalidRole is returned when a role is outside the Roles enumeration.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole maps user input onto a Role. Matching ignores case and
// surrounding whitespace; an empty string yields RoleMember.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RoleMember, nil
	}
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
