// Package rbac implements the role-based access control core: role
// management, role assignments with audit history, and the query layer
// that flattens assignments into effective permissions.
package rbac

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/db/models"
)

// AdminRoleName is the role name that marks platform administrators.
const AdminRoleName = "admin"

const (
	whereRoleName   = "name = ?"
	whereActivePair = "account_id = ? AND role_id = ? AND active = ?"
)

// Service provides role and assignment management on top of the database.
// All operations re-derive their answers from persisted rows; there is no
// cache layer.
type Service struct {
	db *gorm.DB
}

// NewService creates a new rbac service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RolePatch describes a partial role update. Nil fields are left unchanged.
type RolePatch struct {
	Name        *string
	Description *string
	Active      *bool
	// Permissions replaces the role's permission set when non-nil,
	// unless MergePermissions is set, in which case it is unioned in.
	Permissions      []string
	MergePermissions bool
}

// RolePage is one page of a role listing.
type RolePage struct {
	Roles []models.Role
	Total int64
}

// CreateRole creates a new role with a deduplicated permission set.
func (s *Service) CreateRole(name, description string, permissions []string) (*models.Role, error) {
	if name == "" {
		return nil, ErrEmptyRoleName
	}

	var existing models.Role

	err := s.db.Where(whereRoleName, name).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateName
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing role: %w", err)
	}

	role := models.Role{
		Name:        name,
		Description: description,
		Active:      true,
		Permissions: models.NewPermissionList(permissions),
	}

	if err := s.db.Create(&role).Error; err != nil {
		// a concurrent create may slip past the check above; the unique
		// index on name is the final guard
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateName
		}

		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return &role, nil
}

// GetRole retrieves a role by its id.
func (s *Service) GetRole(id uint) (*models.Role, error) {
	var role models.Role

	err := s.db.First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

// GetRoleByName retrieves a role by its case-sensitive name.
func (s *Service) GetRoleByName(name string) (*models.Role, error) {
	var role models.Role

	err := s.db.Where(whereRoleName, name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}

	return &role, nil
}

// ListRoles returns one page of roles ordered by name, with the unpaged
// total. Search matches name or description, case-insensitive.
func (s *Service) ListRoles(offset, limit int, activeOnly bool, search string) (*RolePage, error) {
	var (
		roles []models.Role
		total int64
	)

	tx := s.db.Model(&models.Role{})

	if activeOnly {
		tx = tx.Where("active = ?", true)
	}

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count roles: %w", err)
	}

	err := tx.Order("name").Offset(offset).Limit(limit).Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return &RolePage{Roles: roles, Total: total}, nil
}

// UpdateRole applies a partial update to the role. A non-nil permission set
// replaces the stored set unless MergePermissions is set.
func (s *Service) UpdateRole(id uint, patch RolePatch) (*models.Role, error) {
	role, err := s.GetRole(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != role.Name {
		if *patch.Name == "" {
			return nil, ErrEmptyRoleName
		}

		var existing models.Role

		err = s.db.Where(whereRoleName, *patch.Name).First(&existing).Error
		if err == nil {
			return nil, ErrDuplicateName
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check role name: %w", err)
		}

		role.Name = *patch.Name
	}

	if patch.Description != nil {
		role.Description = *patch.Description
	}

	if patch.Active != nil {
		role.Active = *patch.Active
	}

	if patch.Permissions != nil {
		incoming := models.NewPermissionList(patch.Permissions)

		if patch.MergePermissions {
			role.Permissions = role.Permissions.Merge(incoming)
		} else {
			role.Permissions = incoming
		}
	}

	if err := s.db.Save(role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateName
		}

		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return role, nil
}

// AddPermission adds a permission to the role's set.
// Adding an already present permission is a no-op, not an error.
func (s *Service) AddPermission(id uint, p models.Permission) (*models.Role, error) {
	role, err := s.GetRole(id)
	if err != nil {
		return nil, err
	}

	role.Permissions = role.Permissions.Add(p)

	if err := s.db.Save(role).Error; err != nil {
		return nil, fmt.Errorf("failed to add permission: %w", err)
	}

	return role, nil
}

// RemovePermission removes a permission from the role's set.
// Removing a permission that is not present is a no-op.
func (s *Service) RemovePermission(id uint, p models.Permission) (*models.Role, error) {
	role, err := s.GetRole(id)
	if err != nil {
		return nil, err
	}

	role.Permissions = role.Permissions.Remove(p)

	if err := s.db.Save(role).Error; err != nil {
		return nil, fmt.Errorf("failed to remove permission: %w", err)
	}

	return role, nil
}

// DeleteRole removes a role. Deletion is blocked with ErrRoleInUse while any
// assignment rows reference the role, active or historical; the audit trail
// outlives the revocation of a grant.
func (s *Service) DeleteRole(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var role models.Role

		err := tx.First(&role, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get role: %w", err)
		}

		var count int64

		err = tx.Model(&models.Assignment{}).Where("role_id = ?", id).Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}

		if count > 0 {
			return ErrRoleInUse
		}

		if err := tx.Delete(&role).Error; err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}

		return nil
	})
}

// Assign grants a role to an account. assignedBy is nil for system grants.
// The existence and uniqueness checks and the insert run in one transaction;
// the unique index over (account_id, role_id, active) is the final guard
// against two concurrent grants of the same pair.
func (s *Service) Assign(accountID uuid.UUID, roleID uint, assignedBy *uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var account models.Account

		err := tx.First(&account, "id = ?", accountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}

		var role models.Role

		err = tx.First(&role, roleID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get role: %w", err)
		}

		if !role.Active {
			return ErrRoleInactive
		}

		var existing models.Assignment

		err = tx.Where(whereActivePair, accountID, roleID, true).First(&existing).Error
		if err == nil {
			return ErrAlreadyAssigned
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing assignment: %w", err)
		}

		assignment = models.Assignment{
			AccountID:  accountID,
			RoleID:     roleID,
			AssignedBy: assignedBy,
			AssignedAt: time.Now(),
		}
		assignment.Activate()

		if err := tx.Create(&assignment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyAssigned
			}

			return fmt.Errorf("failed to create assignment: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

// Unassign revokes a role from an account by deactivating the active
// assignment row. The row is kept as history; a later re-grant creates a
// fresh row instead of reactivating this one.
func (s *Service) Unassign(accountID uuid.UUID, roleID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var assignment models.Assignment

		err := tx.Where(whereActivePair, accountID, roleID, true).First(&assignment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get assignment: %w", err)
		}

		// NULL, not FALSE: revoked rows must not collide in the unique
		// index over (account_id, role_id, active)
		assignment.Deactivate()

		if err := tx.Save(&assignment).Error; err != nil {
			return fmt.Errorf("failed to deactivate assignment: %w", err)
		}

		return nil
	})
}

// ListAccountRoles returns the assignments of an account with their roles
// preloaded, newest grant first.
func (s *Service) ListAccountRoles(accountID uuid.UUID, activeOnly bool) ([]models.Assignment, error) {
	var account models.Account

	err := s.db.First(&account, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	tx := s.db.Preload("Role").Where("account_id = ?", accountID)

	if activeOnly {
		tx = tx.Where("active = ?", true)
	}

	var assignments []models.Assignment

	if err := tx.Order("assigned_at DESC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	return assignments, nil
}

// HasRole reports whether an active assignment links the account to an
// active role with the given name.
func (s *Service) HasRole(accountID uuid.UUID, roleName string) (bool, error) {
	var count int64

	err := s.db.Table("account_role_assignments").
		Joins("JOIN roles ON roles.id = account_role_assignments.role_id").
		Where("account_role_assignments.account_id = ?", accountID).
		Where("account_role_assignments.active = ?", true).
		Where("roles.active = ?", true).
		Where("roles.name = ?", roleName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}

	return count > 0, nil
}

// IsAdmin reports whether the account holds the admin role.
func (s *Service) IsAdmin(accountID uuid.UUID) (bool, error) {
	return s.HasRole(accountID, AdminRoleName)
}

// AllPermissions returns the deduplicated union of the permission sets of
// every active role reachable from the account via an active assignment.
// Inactive roles contribute nothing even while an active assignment links
// to them.
func (s *Service) AllPermissions(accountID uuid.UUID) (models.PermissionList, error) {
	var roles []models.Role

	err := s.db.
		Joins("JOIN account_role_assignments ON account_role_assignments.role_id = roles.id").
		Where("account_role_assignments.account_id = ?", accountID).
		Where("account_role_assignments.active = ?", true).
		Where("roles.active = ?", true).
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get account roles: %w", err)
	}

	// the permission sets live in a JSON column, so the union is computed
	// here rather than in SQL
	var merged models.PermissionList

	for _, role := range roles {
		merged = merged.Merge(role.Permissions)
	}

	return merged, nil
}

// HasPermission reports whether the account's flattened permission set
// contains the permission, by exact string match.
func (s *Service) HasPermission(accountID uuid.UUID, p models.Permission) (bool, error) {
	permissions, err := s.AllPermissions(accountID)
	if err != nil {
		return false, err
	}

	return permissions.Has(p), nil
}
