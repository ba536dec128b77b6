package auth

import "github.com/ai-job-readiness/jobready/internal/db/models"

// Permissions guarding API route groups. Names follow the
// resource:action convention; role permission sets reference these by
// exact string match.
const (
	// PermRoleManage allows creating, updating, deleting, assigning and
	// unassigning roles, and viewing role statistics.
	PermRoleManage models.Permission = "role:manage"

	// PermUserRead allows listing and viewing other accounts.
	PermUserRead models.Permission = "user:read"

	// PermUserManage allows activating, deactivating and deleting accounts.
	PermUserManage models.Permission = "user:manage"

	// PermResumeReview allows reading resumes and scores owned by others.
	PermResumeReview models.Permission = "resume:review"
)

// AllPermissions lists every permission the API enforces, used when
// seeding the admin role.
func AllPermissions() models.PermissionList {
	return models.PermissionList{
		PermRoleManage,
		PermUserRead,
		PermUserManage,
		PermResumeReview,
	}
}
