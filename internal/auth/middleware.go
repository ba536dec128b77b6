package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ai-job-readiness/jobready/internal/db/models"
)

// LocalsAccount is the fiber locals key the authenticated account is
// stored under.
const LocalsAccount = "account"

// RequireAuth returns a middleware that authenticates the request from
// its bearer access token and stores the account in the request locals.
// Requests without a valid, unrevoked token of an active account are
// rejected with 401.
func RequireAuth(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return unauthorized(c, "missing bearer token")
		}

		claims, err := svc.JWT.Parse(raw, TokenTypeAccess)
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		revoked, err := svc.Tokens.IsRevoked(claims.ID)
		if err != nil {
			log.Error().Err(err).Msg("revocation check failed")
			return fiber.ErrInternalServerError
		}

		if revoked {
			return unauthorized(c, "token has been revoked")
		}

		accountID, err := uuid.Parse(claims.AccountID)
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		account, err := svc.GetAccount(accountID)
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		if !account.Active {
			return forbidden(c, "account is disabled")
		}

		c.Locals(LocalsAccount, account)

		return c.Next()
	}
}

// RequirePermission returns a middleware that authorizes the request
// against a permission. It must run after RequireAuth.
func RequirePermission(svc *Service, required models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, ok := AccountFromCtx(c)
		if !ok {
			return unauthorized(c, "missing bearer token")
		}

		allowed, err := svc.Can(account, required)
		if err != nil {
			log.Error().Err(err).Str("permission", string(required)).Msg("permission check failed")
			return fiber.ErrInternalServerError
		}

		if !allowed {
			return forbidden(c, "insufficient permissions")
		}

		return c.Next()
	}
}

// AccountFromCtx returns the authenticated account stored by RequireAuth.
func AccountFromCtx(c *fiber.Ctx) (*models.Account, bool) {
	account, ok := c.Locals(LocalsAccount).(*models.Account)

	return account, ok
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}

	return ""
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   "unauthorized",
		"message": msg,
	})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"success": false,
		"error":   "forbidden",
		"message": msg,
	})
}
