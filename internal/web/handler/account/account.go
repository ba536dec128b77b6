// Package account provides the handlers for the account profile
// endpoints under /users/me and the administrative account endpoints
// under /users.
package account

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/auth"
	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/tokens"
	"github.com/ai-job-readiness/jobready/internal/web/handler"
)

const (
	// Path is the base path of the account route group.
	Path = handler.RootPath + "users"

	// totpEnrollTTL bounds how long a pending 2FA enrollment stays valid.
	totpEnrollTTL = 10 * time.Minute
)

// Profile is the public shape of an account, stripped of credential
// material.
type Profile struct {
	ID         uuid.UUID         `json:"id"`
	Email      string            `json:"email"`
	FirstName  string            `json:"first_name"`
	LastName   string            `json:"last_name"`
	Phone      string            `json:"phone,omitempty"`
	Bio        string            `json:"bio,omitempty"`
	Active     bool              `json:"active"`
	Superuser  bool              `json:"superuser"`
	Verified   bool              `json:"verified"`
	AuthSource models.AuthSource `json:"auth_source"`
	TwoFactor  bool              `json:"two_factor_enabled"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewProfile builds the public view of an account.
func NewProfile(a *models.Account) Profile {
	return Profile{
		ID:         a.ID,
		Email:      a.Email,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Phone:      a.Phone,
		Bio:        a.Bio,
		Active:     a.Active,
		Superuser:  a.Superuser,
		Verified:   a.Verified,
		AuthSource: a.AuthSource,
		TwoFactor:  a.TOTPSecret != "",
		CreatedAt:  a.CreatedAt,
	}
}

// UpdateForm is the request body for updating the own profile.
type UpdateForm struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,max=100"`
	Phone     *string `json:"phone"      validate:"omitempty,max=50"`
	Bio       *string `json:"bio"        validate:"omitempty,max=1000"`
}

// ChangePasswordForm is the request body for changing the own password.
type ChangePasswordForm struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// TOTPActivateForm is the request body confirming a 2FA enrollment.
type TOTPActivateForm struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Service is the account handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authSvc   *auth.Service
	local     *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the account handler.
var Handler = Service{}

// Init initializes the account handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authSvc = authService
	s.local = auth.NewLocalProvider(db)
	s.validator = validator.New()

	authed := auth.RequireAuth(authService)
	readUsers := auth.RequirePermission(authService, auth.PermUserRead)
	manageUsers := auth.RequirePermission(authService, auth.PermUserManage)

	group := app.Group(Path, authed)

	// literal paths first, so the :id routes cannot shadow them
	group.Get("/me", s.Me)
	group.Put("/me", s.UpdateMe)
	group.Post("/change-password", s.ChangePassword)
	group.Post("/2fa/enroll", s.EnrollTOTP)
	group.Post("/2fa/activate", s.ActivateTOTP)

	group.Get("/", readUsers, s.List)
	group.Get("/:id", readUsers, s.Get)
	group.Delete("/:id", manageUsers, s.Delete)
	group.Patch("/:id/activate", manageUsers, s.Activate)
	group.Patch("/:id/deactivate", manageUsers, s.Deactivate)
}

// Me handles GET /users/me.
func (s *Service) Me(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	return handler.OK(c, fiber.StatusOK, "", NewProfile(account))
}

// UpdateMe handles PUT /users/me.
func (s *Service) UpdateMe(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	form := &UpdateForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	updates := map[string]interface{}{}

	if form.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*form.FirstName)
	}

	if form.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*form.LastName)
	}

	if form.Phone != nil {
		updates["phone"] = strings.TrimSpace(*form.Phone)
	}

	if form.Bio != nil {
		updates["bio"] = *form.Bio
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return handler.FromError(c, err)
		}
	}

	return handler.OK(c, fiber.StatusOK, "profile updated", NewProfile(account))
}

// ChangePassword handles POST /users/change-password.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	form := &ChangePasswordForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	err := s.local.ChangePassword(account.ID, form.OldPassword, form.NewPassword)

	switch {
	case errors.Is(err, auth.ErrInvalidPassword):
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "old password does not match")
	case errors.Is(err, auth.ErrAccountNotFound):
		// Directory backed accounts carry no local password.
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "account has no local password")
	case err != nil:
		return handler.FromError(c, err)
	}

	log.Info().Str("account_id", account.ID.String()).Msg("password changed")

	return handler.OK(c, fiber.StatusOK, "password changed", nil)
}

// EnrollTOTP handles POST /users/2fa/enroll. The generated secret is
// held in the pending store until the account confirms it with a code.
func (s *Service) EnrollTOTP(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	key, err := auth.GenerateTOTPKey(s.cfg.Title, account.Email)
	if err != nil {
		return handler.FromError(c, err)
	}

	err = s.authSvc.Tokens.Set(tokens.KindTOTPPending, account.ID.String(), key.Secret(), totpEnrollTTL)
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "confirm enrollment with a code", fiber.Map{
		"secret": key.Secret(),
		"url":    key.URL(),
	})
}

// ActivateTOTP handles POST /users/2fa/activate.
func (s *Service) ActivateTOTP(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	form := &TOTPActivateForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	secret, err := s.authSvc.Tokens.Get(tokens.KindTOTPPending, account.ID.String())
	if err != nil {
		return handler.FromError(c, err)
	}

	if !auth.ValidateTOTP(form.Code, secret) {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid totp code")
	}

	if err := s.db.Model(account).Update("totp_secret", secret).Error; err != nil {
		return handler.FromError(c, err)
	}

	_ = s.authSvc.Tokens.Delete(tokens.KindTOTPPending, account.ID.String())

	log.Info().Str("account_id", account.ID.String()).Msg("two factor enabled")

	return handler.OK(c, fiber.StatusOK, "two factor enabled", nil)
}

// List handles GET /users/.
func (s *Service) List(c *fiber.Ctx) error {
	offset, limit := handler.PageQuery(c)

	query := s.db.Model(&models.Account{})

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"email LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			pattern, pattern, pattern,
		)
	}

	if c.QueryBool("active_only", false) {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return handler.FromError(c, err)
	}

	var accounts []models.Account

	err := query.Order("email").Offset(offset).Limit(limit).Find(&accounts).Error
	if err != nil {
		return handler.FromError(c, err)
	}

	profiles := make([]Profile, len(accounts))
	for i := range accounts {
		profiles[i] = NewProfile(&accounts[i])
	}

	return handler.OK(c, fiber.StatusOK, "", fiber.Map{
		"users":  profiles,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// Get handles GET /users/:id.
func (s *Service) Get(c *fiber.Ctx) error {
	account, err := s.load(c)
	if err != nil {
		return err
	}

	return handler.OK(c, fiber.StatusOK, "", NewProfile(account))
}

// Delete handles DELETE /users/:id. Accounts are deactivated rather
// than removed so assignment history and resumes stay intact.
func (s *Service) Delete(c *fiber.Ctx) error {
	account, err := s.load(c)
	if err != nil {
		return err
	}

	if actor, ok := auth.AccountFromCtx(c); ok && actor.ID == account.ID {
		return handler.Fail(c, fiber.StatusConflict, "cannot delete own account")
	}

	if err := s.db.Model(account).Update("active", false).Error; err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Str("account_id", account.ID.String()).Msg("account deleted")

	return handler.OK(c, fiber.StatusOK, "account deleted", nil)
}

// Activate handles PATCH /users/:id/activate.
func (s *Service) Activate(c *fiber.Ctx) error {
	return s.setActive(c, true, "account activated")
}

// Deactivate handles PATCH /users/:id/deactivate.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	return s.setActive(c, false, "account deactivated")
}

func (s *Service) setActive(c *fiber.Ctx, active bool, message string) error {
	account, err := s.load(c)
	if err != nil {
		return err
	}

	if actor, ok := auth.AccountFromCtx(c); ok && actor.ID == account.ID && !active {
		return handler.Fail(c, fiber.StatusConflict, "cannot deactivate own account")
	}

	if err := s.db.Model(account).Update("active", active).Error; err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Str("account_id", account.ID.String()).Bool("active", active).Msg(message)

	return handler.OK(c, fiber.StatusOK, message, NewProfile(account))
}

// load resolves the :id path parameter to an account, writing the
// failure response itself when it cannot.
func (s *Service) load(c *fiber.Ctx) (*models.Account, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid user id")
	}

	account, err := s.authSvc.GetAccount(id)
	if errors.Is(err, auth.ErrAccountNotFound) {
		return nil, handler.Fail(c, fiber.StatusNotFound, "account not found")
	}

	if err != nil {
		return nil, handler.FromError(c, err)
	}

	return account, nil
}
