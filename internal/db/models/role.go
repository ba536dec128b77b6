package models

import "time"

// Role represents a named bundle of permissions in the role-based access
// control (RBAC) system. Roles are independently managed and granted to
// accounts through Assignments. Examples include "admin" and "user".
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the unique, case-sensitive name of the role (e.g. "admin").
	Name string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:1000"`
	// Active indicates whether the role currently grants its permissions.
	// An inactive role grants nothing even while assignments still link to it.
	Active bool `gorm:"default:true"`
	// Permissions is the ordered set of distinct permission strings,
	// stored as a JSON array in a text column.
	Permissions PermissionList `gorm:"type:text"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}

// HasPermission reports whether the role's permission set contains p.
// The role's active flag is deliberately not consulted here; effective
// permission checks live in the rbac query layer.
func (r *Role) HasPermission(p Permission) bool {
	return r.Permissions.Has(p)
}
