package gatekeeper

import "strings"

// Role is the principal's permission tier
type Role = string

const (
	// RoleUser is the base tier (i.e. dashboard access when whitelisted)
	RoleUser Role = "user"
	// RoleCoOwner can manage users (i.e. whitelist, create, delete)
	RoleCoOwner Role = "co-owner"
	// RoleAdmin is the top tier
	RoleAdmin Role = "admin"
)

// roleRank is the total order backing IsAtLeast. Unknown roles rank below
// every valid role.
var roleRank = map[Role]int{
	RoleUser:    1,
	RoleCoOwner: 2,
	RoleAdmin:   3,
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	_, ok := roleRank[r]
	return ok
}

// IsAtLeast checks if the role meets the minimum required level
func IsAtLeast(r, minRole Role) bool {
	currentLevel, exists := roleRank[r]
	if !exists {
		return false
	}

	minLevel, exists := roleRank[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// CanManageUsers checks if the role may use the user administration surface
func CanManageUsers(r Role) bool {
	return IsAtLeast(r, RoleCoOwner)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleCoOwner,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, IsValidRole(role)
}

// NormalizeEmail is the canonical email form used for every whitelist and
// identity lookup: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
