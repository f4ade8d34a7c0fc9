// internal/app/system/authz/roles.go
package authz

import "strings"

// Role is a per-group membership role. The set is closed; "removed" marks a
// former member whose row is retained so rejoining can resurrect it.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleEditor  Role = "editor"
	RoleViewer  Role = "viewer"
	RoleRemoved Role = "removed"
)

// roleRank orders roles for display purposes only (admin > editor > viewer >
// removed). Authorization never uses this ordering: each action declares its
// own explicit allow-list in actions.go.
var roleRank = map[Role]int{
	RoleAdmin:   3,
	RoleEditor:  2,
	RoleViewer:  1,
	RoleRemoved: 0,
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := roleRank[r]
	return r, ok
}

// Rank returns the display ordering of a role; unknown roles sort last.
func Rank(r Role) int {
	if n, ok := roleRank[r]; ok {
		return n
	}
	return -1
}

// IsActive reports whether the role counts as a current member of the group.
func IsActive(r Role) bool {
	return r != RoleRemoved && Rank(r) > 0
}
