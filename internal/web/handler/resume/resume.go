// Package resume provides the handlers for resume submission and
// retrieval. Resumes are owner scoped; reading or deleting someone
// else's resume requires the resume:review permission.
package resume

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/auth"
	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/web/handler"
)

const (
	// Path is the base path of the resume route group.
	Path = handler.RootPath + "resumes"
)

// Form is the request body for creating or updating a resume.
type Form struct {
	Title   string `json:"title"   validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

// Service is the resume handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authSvc   *auth.Service
	validator *validator.Validate
}

// Handler is the resume handler.
var Handler = Service{}

// Init initializes the resume handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authSvc = authService
	s.validator = validator.New()

	group := app.Group(Path, auth.RequireAuth(authService))

	group.Post("/", s.Create)
	group.Get("/", s.List)
	group.Get("/:id", s.Get)
	group.Put("/:id", s.Update)
	group.Delete("/:id", s.Delete)
}

// Create handles POST /resumes/.
func (s *Service) Create(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	form := &Form{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	resume := models.Resume{
		AccountID: account.ID,
		Title:     form.Title,
		Content:   form.Content,
		Status:    models.ResumeStatusUploaded,
	}

	if err := s.db.Create(&resume).Error; err != nil {
		return handler.FromError(c, err)
	}

	log.Info().
		Str("account_id", account.ID.String()).
		Uint("resume_id", resume.ID).
		Msg("resume submitted")

	return handler.OK(c, fiber.StatusCreated, "resume submitted", resume)
}

// List handles GET /resumes/. Accounts see their own resumes; reviewers
// may pass all=true to list everyone's.
func (s *Service) List(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	offset, limit := handler.PageQuery(c)

	query := s.db.Model(&models.Resume{})

	if c.QueryBool("all", false) {
		allowed, err := s.authSvc.Can(account, auth.PermResumeReview)
		if err != nil {
			return handler.FromError(c, err)
		}

		if !allowed {
			return handler.Fail(c, fiber.StatusForbidden, "insufficient permissions")
		}
	} else {
		query = query.Where("account_id = ?", account.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return handler.FromError(c, err)
	}

	var resumes []models.Resume

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&resumes).Error
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "", fiber.Map{
		"resumes": resumes,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

// Get handles GET /resumes/:id.
func (s *Service) Get(c *fiber.Ctx) error {
	resume, err := s.load(c, false)
	if err != nil {
		return err
	}

	return handler.OK(c, fiber.StatusOK, "", resume)
}

// Update handles PUT /resumes/:id. Only the owner may edit a resume.
func (s *Service) Update(c *fiber.Ctx) error {
	resume, err := s.load(c, true)
	if err != nil {
		return err
	}

	form := &Form{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	updates := map[string]interface{}{
		"title":   form.Title,
		"content": form.Content,
		// Edits restart the pipeline.
		"status": models.ResumeStatusUploaded,
	}

	if err := s.db.Model(resume).Updates(updates).Error; err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "resume updated", resume)
}

// Delete handles DELETE /resumes/:id. Scores referencing the resume go
// with it through the foreign key cascade.
func (s *Service) Delete(c *fiber.Ctx) error {
	resume, err := s.load(c, false)
	if err != nil {
		return err
	}

	if err := s.db.Delete(resume).Error; err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Uint("resume_id", resume.ID).Msg("resume deleted")

	return handler.OK(c, fiber.StatusOK, "resume deleted", nil)
}

// load resolves the :id path parameter, enforcing ownership. Reviewers
// pass unless ownerOnly is set.
func (s *Service) load(c *fiber.Ctx, ownerOnly bool) (*models.Resume, error) {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return nil, handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid resume id")
	}

	var resume models.Resume

	err = s.db.First(&resume, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, handler.Fail(c, fiber.StatusNotFound, "resume not found")
	}

	if err != nil {
		return nil, handler.FromError(c, err)
	}

	if resume.AccountID == account.ID {
		return &resume, nil
	}

	if ownerOnly {
		return nil, handler.Fail(c, fiber.StatusForbidden, "insufficient permissions")
	}

	allowed, err := s.authSvc.Can(account, auth.PermResumeReview)
	if err != nil {
		return nil, handler.FromError(c, err)
	}

	if !allowed {
		return nil, handler.Fail(c, fiber.StatusForbidden, "insufficient permissions")
	}

	return &resume, nil
}
