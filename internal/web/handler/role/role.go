// Package role provides the handlers for role management: CRUD,
// assignment and the statistics overview.
package role

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/auth"
	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/rbac"
	"github.com/ai-job-readiness/jobready/internal/web/handler"
)

const (
	// Path is the base path of the role route group.
	Path = handler.RootPath + "roles"
)

// CreateForm is the request body for creating a role.
type CreateForm struct {
	Name        string   `json:"name"        validate:"required,max=100"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions"`
}

// UpdateForm is the request body for updating a role. Absent fields are
// left unchanged; permissions replace the set unless merge_permissions
// is set.
type UpdateForm struct {
	Name             *string  `json:"name"        validate:"omitempty,min=1,max=100"`
	Description      *string  `json:"description" validate:"omitempty,max=255"`
	Active           *bool    `json:"active"`
	Permissions      []string `json:"permissions"`
	MergePermissions bool     `json:"merge_permissions"`
}

// PermissionForm is the request body for adding or removing a single
// permission.
type PermissionForm struct {
	Permission string `json:"permission" validate:"required,max=255"`
}

// AssignForm is the request body for assigning or unassigning a role.
type AssignForm struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// Service is the role handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	rbac      *rbac.Service
	authSvc   *auth.Service
	validator *validator.Validate
}

// Handler is the role handler.
var Handler = Service{}

// Init initializes the role handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.rbac = authService.RBAC()
	s.authSvc = authService
	s.validator = validator.New()

	authed := auth.RequireAuth(authService)
	manage := auth.RequirePermission(authService, auth.PermRoleManage)

	group := app.Group(Path, authed)

	group.Post("/", manage, s.Create)
	group.Get("/", s.List)

	// statistics must be registered before the :id routes so the
	// literal path wins.
	group.Get("/statistics", s.Statistics)

	group.Get("/user/:user_id", s.ListUserRoles)

	group.Get("/:id", s.Get)
	group.Put("/:id", manage, s.Update)
	group.Delete("/:id", manage, s.Delete)

	group.Post("/:id/permissions", manage, s.AddPermission)
	group.Delete("/:id/permissions", manage, s.RemovePermission)

	group.Post("/:id/assign", manage, s.Assign)
	group.Delete("/:id/unassign", manage, s.Unassign)
}

// Create handles POST /roles/.
func (s *Service) Create(c *fiber.Ctx) error {
	form := &CreateForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	role, err := s.rbac.CreateRole(form.Name, form.Description, form.Permissions)
	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Str("role", role.Name).Msg("role created")

	return handler.OK(c, fiber.StatusCreated, "role created", role)
}

// List handles GET /roles/.
func (s *Service) List(c *fiber.Ctx) error {
	offset, limit := handler.PageQuery(c)

	page, err := s.rbac.ListRoles(offset, limit, c.QueryBool("active_only", false), c.Query("search"))
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "", fiber.Map{
		"roles":  page.Roles,
		"total":  page.Total,
		"offset": offset,
		"limit":  limit,
	})
}

// Get handles GET /roles/:id.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid role id")
	}

	role, err := s.rbac.GetRole(id)
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "", role)
}

// Update handles PUT /roles/:id.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid role id")
	}

	form := &UpdateForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	role, err := s.rbac.UpdateRole(id, rbac.RolePatch{
		Name:             form.Name,
		Description:      form.Description,
		Active:           form.Active,
		Permissions:      form.Permissions,
		MergePermissions: form.MergePermissions,
	})
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "role updated", role)
}

// Delete handles DELETE /roles/:id. Roles with assignment history are
// refused; revoke the assignments or deactivate the role instead.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid role id")
	}

	if err := s.rbac.DeleteRole(id); err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Uint("role_id", id).Msg("role deleted")

	return handler.OK(c, fiber.StatusOK, "role deleted", nil)
}

// AddPermission handles POST /roles/:id/permissions.
func (s *Service) AddPermission(c *fiber.Ctx) error {
	return s.patchPermission(c, s.rbac.AddPermission, "permission added")
}

// RemovePermission handles DELETE /roles/:id/permissions.
func (s *Service) RemovePermission(c *fiber.Ctx) error {
	return s.patchPermission(c, s.rbac.RemovePermission, "permission removed")
}

func (s *Service) patchPermission(
	c *fiber.Ctx,
	op func(uint, models.Permission) (*models.Role, error),
	message string,
) error {
	id, err := roleID(c)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid role id")
	}

	form := &PermissionForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	role, err := op(id, models.Permission(form.Permission))
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, message, role)
}

// Assign handles POST /roles/:id/assign.
func (s *Service) Assign(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid role id")
	}

	form := &AssignForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if form.UserID == uuid.Nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "user_id is required")
	}

	var assignedBy *uuid.UUID
	if actor, ok := auth.AccountFromCtx(c); ok {
		assignedBy = &actor.ID
	}

	assignment, err := s.rbac.Assign(form.UserID, id, assignedBy)
	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().
		Str("user_id", form.UserID.String()).
		Uint("role_id", id).
		Msg("role assigned")

	return handler.OK(c, fiber.StatusCreated, "role assigned", assignment)
}

// Unassign handles DELETE /roles/:id/unassign. The assignment row is
// deactivated, not deleted, so the grant history stays queryable.
func (s *Service) Unassign(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid role id")
	}

	form := &AssignForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if form.UserID == uuid.Nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "user_id is required")
	}

	if err := s.rbac.Unassign(form.UserID, id); err != nil {
		return handler.FromError(c, err)
	}

	log.Info().
		Str("user_id", form.UserID.String()).
		Uint("role_id", id).
		Msg("role unassigned")

	return handler.OK(c, fiber.StatusOK, "role unassigned", nil)
}

// ListUserRoles handles GET /roles/user/:user_id. Accounts may always
// list their own roles; listing others requires the user:read
// permission.
func (s *Service) ListUserRoles(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid user id")
	}

	actor, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	if actor.ID != userID {
		allowed, err := s.authSvc.Can(actor, auth.PermUserRead)
		if err != nil {
			return handler.FromError(c, err)
		}

		if !allowed {
			return handler.Fail(c, fiber.StatusForbidden, "insufficient permissions")
		}
	}

	assignments, err := s.rbac.ListAccountRoles(userID, c.QueryBool("active_only", true))
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "", assignments)
}

// Statistics handles GET /roles/statistics.
func (s *Service) Statistics(c *fiber.Ctx) error {
	stats, err := s.rbac.Statistics()
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "", stats)
}

func roleID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.ErrUnprocessableEntity
	}

	return uint(id), nil
}
