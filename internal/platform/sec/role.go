// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Admin Roles

// UserRole represents the authorization level granted to an admin account.
type UserRole string

const (
	// Full schema and user management
	RoleAdmin UserRole = "admin"

	// Read-only access to schemas
	RoleViewer UserRole = "viewer"
)

// ParseRole maps a stored role value to a [UserRole]. Admin accounts created
// without a role are full admins; unrecognised values grant nothing.
func ParseRole(value string) UserRole {
	switch UserRole(value) {
	case "", RoleAdmin:
		return RoleAdmin
	case RoleViewer:
		return RoleViewer
	default:
		return UserRole(value)
	}
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 20
	case RoleViewer:
		return 10
	default:
		return 0
	}
}
