package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ai-job-readiness/jobready/internal/rbac"
	"github.com/ai-job-readiness/jobready/internal/tokens"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes a success envelope with the given status and payload.
func OK(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Fail writes a failure envelope with the given status. The error field
// carries the machine readable kind derived from the status, the
// message field the human text.
func Fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(Envelope{
		Success: false,
		Error:   errorKind(status),
		Message: msg,
	})
}

func errorKind(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusUnprocessableEntity:
		return "validation_error"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

// FromError maps a service error to its HTTP status and writes the
// failure envelope. Unrecognized errors become 500 and are logged.
func FromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, rbac.ErrRoleNotFound),
		errors.Is(err, rbac.ErrAccountNotFound),
		errors.Is(err, rbac.ErrAssignmentNotFound):
		return Fail(c, fiber.StatusNotFound, err.Error())

	case errors.Is(err, rbac.ErrDuplicateName),
		errors.Is(err, rbac.ErrAlreadyAssigned),
		errors.Is(err, rbac.ErrRoleInUse):
		return Fail(c, fiber.StatusConflict, err.Error())

	case errors.Is(err, rbac.ErrRoleInactive),
		errors.Is(err, rbac.ErrEmptyRoleName),
		errors.Is(err, tokens.ErrTokenNotFound):
		return Fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")

	return Fail(c, fiber.StatusInternalServerError, "internal server error")
}

// ValidationError flattens validator errors into a 422 failure envelope.
func ValidationError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return Fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	msg := ""

	for i, ve := range validationErrors {
		if i > 0 {
			msg += "; "
		}

		msg += "field '" + ve.Field() + "' failed validation tag '" + ve.Tag() + "'"
	}

	return Fail(c, fiber.StatusUnprocessableEntity, msg)
}

// PageQuery reads the offset/limit query parameters, clamping them to
// sane bounds.
func PageQuery(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	limit = c.QueryInt("limit", DefaultPageLimit)
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	return offset, limit
}
