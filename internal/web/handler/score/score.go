// Package score provides the handlers for readiness scores. Scores are
// written by reviewers and read back by the resume owner.
package score

import (
	"encoding/json"
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

// Form is the request body for recording a score.
type Form struct {
	Overall float64         `json:"overall" validate:"gte=0,lte=100"`
	Details json.RawMessage `json:"details"`
}

// Service is the score handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authSvc   *auth.Service
	validator *validator.Validate
}

// Handler is the score handler.
var Handler = Service{}

// Init initializes the score handler. Score routes are keyed by the
// resume they belong to.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authSvc = authService
	s.validator = validator.New()

	group := app.Group(handler.RootPath+"scores", auth.RequireAuth(authService))

	group.Get("/resume/:id", s.List)
	group.Post("/resume/:id", auth.RequirePermission(authService, auth.PermResumeReview), s.Create)
}

// List handles GET /scores/resume/:id.
func (s *Service) List(c *fiber.Ctx) error {
	resume, err := s.loadResume(c)
	if err != nil {
		return err
	}

	var scores []models.Score

	err = s.db.Where("resume_id = ?", resume.ID).Order("created_at DESC").Find(&scores).Error
	if err != nil {
		return handler.FromError(c, err)
	}

	return handler.OK(c, fiber.StatusOK, "", scores)
}

// Create handles POST /scores/resume/:id.
func (s *Service) Create(c *fiber.Ctx) error {
	resume, err := s.loadResume(c)
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

	score := models.Score{
		AccountID: resume.AccountID,
		ResumeID:  resume.ID,
		Overall:   form.Overall,
		Details:   string(form.Details),
	}

	if err := s.db.Create(&score).Error; err != nil {
		return handler.FromError(c, err)
	}

	log.Info().
		Uint("resume_id", resume.ID).
		Float64("overall", form.Overall).
		Msg("score recorded")

	return handler.OK(c, fiber.StatusCreated, "score recorded", score)
}

// loadResume resolves the :id path parameter to a resume the caller may
// see: the owner, or anyone with the resume:review permission.
func (s *Service) loadResume(c *fiber.Ctx) (*models.Resume, error) {
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

	if resume.AccountID != account.ID {
		allowed, err := s.authSvc.Can(account, auth.PermResumeReview)
		if err != nil {
			return nil, handler.FromError(c, err)
		}

		if !allowed {
			return nil, handler.Fail(c, fiber.StatusForbidden, "insufficient permissions")
		}
	}

	return &resume, nil
}
