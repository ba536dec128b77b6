package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is the join record linking one account to one role.
// It carries audit metadata: who granted the role, when, and whether the
// grant is still in effect. Revoking a role deactivates the row instead of
// deleting it; a later re-grant creates a new row, preserving the full
// grant/revoke history.
type Assignment struct {
	// ID is the unique identifier for the assignment.
	ID uint `gorm:"primaryKey"`
	// AccountID is the account holding the role.
	// The unique index over (account_id, role_id, active) admits at most one
	// active assignment per pair: active rows store TRUE, revoked rows store
	// NULL, and NULLs never collide in a unique index. This holds on mysql,
	// postgres and sqlite alike, unlike a partial index, which the mysql
	// migrator cannot render.
	AccountID uuid.UUID `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_assignment_pair_active"`
	// RoleID is the granted role.
	RoleID uint `gorm:"not null;index;uniqueIndex:idx_assignment_pair_active"`
	// Account is the associated account (enforced with a foreign key constraint).
	Account Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
	// Role is the associated role (deletion is blocked while assignments exist).
	Role Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	// AssignedBy identifies the principal that granted the role.
	// Nil means the grant was made by the system (e.g. registration defaults).
	AssignedBy *uuid.UUID `gorm:"type:varchar(36)"`
	// AssignedAt is the timestamp of the grant.
	AssignedAt time.Time `gorm:"not null"`
	// Active is TRUE while the grant is in effect and NULL once revoked.
	// Revoked rows are historical and excluded from permission computation.
	// Never store FALSE: two revoked rows for the same pair would collide
	// in the unique index.
	Active *bool `gorm:"uniqueIndex:idx_assignment_pair_active"`
}

// TableName specifies the database table name for the Assignment model.
func (Assignment) TableName() string {
	return "account_role_assignments"
}

// Activate marks the grant as in effect.
func (a *Assignment) Activate() {
	active := true
	a.Active = &active
}

// Deactivate revokes the grant, keeping the row as history.
func (a *Assignment) Deactivate() {
	a.Active = nil
}

// IsActive reports whether the grant is in effect.
func (a *Assignment) IsActive() bool {
	return a.Active != nil && *a.Active
}
