// Package handler defines the shared pieces of the HTTP handler
// packages: the handler service interface, the JSON response envelope
// and the mapping from service errors to HTTP statuses.
package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/auth"
	"github.com/ai-job-readiness/jobready/internal/config"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service)
}
