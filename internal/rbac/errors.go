package rbac

import "errors"

var (
	// ErrRoleNotFound is returned when a role id or name does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrAccountNotFound is returned when an account id does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAssignmentNotFound is returned when no active assignment links the
	// account to the role.
	ErrAssignmentNotFound = errors.New("no active role assignment found")

	// ErrDuplicateName is returned when creating or renaming a role to a name
	// that already exists. Name matching is case-sensitive.
	ErrDuplicateName = errors.New("role with this name already exists")

	// ErrAlreadyAssigned is returned when an active assignment for the
	// (account, role) pair already exists.
	ErrAlreadyAssigned = errors.New("account already holds this role")

	// ErrRoleInUse is returned when deleting a role that still has assignment
	// rows. Deletion is blocked rather than cascaded to keep the audit trail.
	ErrRoleInUse = errors.New("role is assigned to accounts and can not be deleted")

	// ErrRoleInactive is returned when assigning a role that is deactivated.
	ErrRoleInactive = errors.New("inactive role can not be assigned")

	// ErrEmptyRoleName is returned when creating a role without a name.
	ErrEmptyRoleName = errors.New("role name can not be empty")
)
