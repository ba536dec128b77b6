// Package authn provides the handlers for the authentication endpoints:
// registration, the JWT login/refresh/logout flow, the password reset
// and email verification flows, and the LDAP and OIDC login routes.
package authn

import (
	"context"
	"errors"
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
	// Path is the base path of the authentication route group.
	Path = handler.RootPath + "auth"

	// oidcStateTTL bounds how long an OIDC login may take.
	oidcStateTTL = 10 * time.Minute

	oidcDiscoveryTimeout = 15 * time.Second
)

// RegisterForm is the request body for creating a local account.
type RegisterForm struct {
	Email     string `json:"email"      validate:"required,email,max=255"`
	Password  string `json:"password"   validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
}

// LoginForm is the request body for a local login.
type LoginForm struct {
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required"`
	TOTPCode string `json:"totp_code" validate:"omitempty,len=6,numeric"`
}

// LDAPLoginForm is the request body for a directory login.
type LDAPLoginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshForm is the request body carrying a refresh token.
type RefreshForm struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutForm optionally carries the refresh token to revoke alongside
// the access token.
type LogoutForm struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordForm is the request body starting a password reset.
type ForgotPasswordForm struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordForm is the request body completing a password reset.
type ResetPasswordForm struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// VerifyForm is the request body completing an email verification.
type VerifyForm struct {
	Token string `json:"token" validate:"required"`
}

// Service is the authentication handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	authSvc   *auth.Service
	local     *auth.LocalProvider
	ldap      *auth.LDAPProvider
	oidc      *auth.OIDCProvider
	validator *validator.Validate
}

// Handler is the authentication handler.
var Handler = Service{}

// Init initializes the authentication handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.authSvc = authService
	s.local = auth.NewLocalProvider(db)
	s.ldap = auth.NewLDAPProvider(db, cfg.Auth.LDAP)
	s.validator = validator.New()

	if cfg.Auth.OIDC.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), oidcDiscoveryTimeout)
		defer cancel()

		provider, err := auth.NewOIDCProvider(ctx, db, cfg.Auth.OIDC)
		if err != nil {
			log.Error().Err(err).Msg("oidc setup failed, oidc login disabled")
		} else {
			s.oidc = provider
		}
	}

	group := app.Group(Path)

	group.Post("/register", s.Register)

	group.Post("/jwt/login", s.Login)
	group.Post("/jwt/refresh", s.Refresh)
	group.Post("/jwt/logout", auth.RequireAuth(authService), s.Logout)

	group.Post("/ldap/login", s.LDAPLogin)

	group.Get("/oidc/login", s.OIDCLogin)
	group.Get("/oidc/callback", s.OIDCCallback)

	group.Post("/forgot-password", s.ForgotPassword)
	group.Post("/reset-password", s.ResetPassword)

	group.Post("/request-verify", auth.RequireAuth(authService), s.RequestVerifyToken)
	group.Post("/verify", s.Verify)
}

// Register handles POST /auth/register.
func (s *Service) Register(c *fiber.Ctx) error {
	form := &RegisterForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	account, err := s.local.Register(form.Email, form.Password, form.FirstName, form.LastName)
	if errors.Is(err, auth.ErrEmailExists) {
		return handler.Fail(c, fiber.StatusConflict, "email address already registered")
	}

	if err != nil {
		return handler.FromError(c, err)
	}

	s.grantDefaultRole(account)

	token, err := s.authSvc.Tokens.Issue(tokens.KindVerify, account.Email, s.cfg.Auth.VerifyTokenTTL)
	if err == nil {
		// TODO: deliver the token by mail once an SMTP relay is configured.
		log.Info().Str("email", account.Email).Str("token", token).Msg("verification token issued")
	}

	log.Info().Str("email", account.Email).Msg("account registered")

	return handler.OK(c, fiber.StatusCreated, "account registered", fiber.Map{
		"id":    account.ID,
		"email": account.Email,
	})
}

// grantDefaultRole puts new accounts on the seeded "user" role. A missing
// role is not an error, the deployment may have removed it.
func (s *Service) grantDefaultRole(account *models.Account) {
	role, err := s.authSvc.RBAC().GetRoleByName("user")
	if err != nil {
		return
	}

	if _, err := s.authSvc.RBAC().Assign(account.ID, role.ID, nil); err != nil {
		log.Error().Err(err).Str("email", account.Email).Msg("failed to grant default role")
	}
}

// Login handles POST /auth/jwt/login.
func (s *Service) Login(c *fiber.Ctx) error {
	form := &LoginForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	account, err := s.local.Authenticate(form.Email, form.Password, form.TOTPCode)

	// Accounts that only exist in the directory fall through to LDAP.
	if errors.Is(err, auth.ErrAccountNotFound) && s.ldap.Enabled() {
		account, err = s.ldap.Authenticate(form.Email, form.Password)
	}

	switch {
	case errors.Is(err, auth.ErrTOTPRequired):
		return handler.Fail(c, fiber.StatusUnauthorized, "totp code required")
	case errors.Is(err, auth.ErrAccountDisabled):
		return handler.Fail(c, fiber.StatusForbidden, "account is disabled")
	case err != nil:
		// Unknown email, bad password and bad TOTP code all collapse
		// into the same answer.
		log.Debug().Err(err).Str("email", form.Email).Msg("login rejected")

		return handler.Fail(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	return s.issuePair(c, account)
}

// LDAPLogin handles POST /auth/ldap/login.
func (s *Service) LDAPLogin(c *fiber.Ctx) error {
	if !s.ldap.Enabled() {
		return handler.Fail(c, fiber.StatusNotFound, "ldap login is not enabled")
	}

	form := &LDAPLoginForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	account, err := s.ldap.Authenticate(form.Username, form.Password)

	switch {
	case errors.Is(err, auth.ErrAccountDisabled):
		return handler.Fail(c, fiber.StatusForbidden, "account is disabled")
	case errors.Is(err, auth.ErrAccountNotFound), errors.Is(err, auth.ErrInvalidPassword):
		return handler.Fail(c, fiber.StatusUnauthorized, "invalid credentials")
	case err != nil:
		return handler.FromError(c, err)
	}

	return s.issuePair(c, account)
}

// OIDCLogin handles GET /auth/oidc/login: it stores a state token and
// redirects to the identity provider.
func (s *Service) OIDCLogin(c *fiber.Ctx) error {
	if s.oidc == nil {
		return handler.Fail(c, fiber.StatusNotFound, "oidc login is not enabled")
	}

	state := s.oidc.NewStateToken()

	err := s.authSvc.Tokens.Set(tokens.KindOIDCState, state, "1", oidcStateTTL)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.Redirect(s.oidc.AuthURL(state), fiber.StatusFound)
}

// OIDCCallback handles GET /auth/oidc/callback.
func (s *Service) OIDCCallback(c *fiber.Ctx) error {
	if s.oidc == nil {
		return handler.Fail(c, fiber.StatusNotFound, "oidc login is not enabled")
	}

	state := c.Query("state")
	if state == "" {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "missing state parameter")
	}

	if _, err := s.authSvc.Tokens.Consume(tokens.KindOIDCState, state); err != nil {
		if errors.Is(err, tokens.ErrTokenNotFound) {
			return handler.Fail(c, fiber.StatusUnauthorized, "invalid state parameter")
		}

		return handler.FromError(c, err)
	}

	code := c.Query("code")
	if code == "" {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "missing code parameter")
	}

	account, err := s.oidc.HandleCallback(c.Context(), code)

	switch {
	case errors.Is(err, auth.ErrAccountDisabled):
		return handler.Fail(c, fiber.StatusForbidden, "account is disabled")
	case err != nil:
		log.Error().Err(err).Msg("oidc callback failed")

		return handler.Fail(c, fiber.StatusUnauthorized, "oidc login failed")
	}

	return s.issuePair(c, account)
}

// Refresh handles POST /auth/jwt/refresh. Refresh tokens rotate: the
// presented token is revoked and a fresh pair is issued.
func (s *Service) Refresh(c *fiber.Ctx) error {
	form := &RefreshForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	claims, err := s.authSvc.JWT.Parse(form.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnauthorized, "invalid or expired refresh token")
	}

	revoked, err := s.authSvc.Tokens.IsRevoked(claims.ID)
	if err != nil {
		return handler.FromError(c, err)
	}

	if revoked {
		return handler.Fail(c, fiber.StatusUnauthorized, "refresh token has been revoked")
	}

	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnauthorized, "invalid or expired refresh token")
	}

	account, err := s.authSvc.GetAccount(accountID)
	if errors.Is(err, auth.ErrAccountNotFound) {
		return handler.Fail(c, fiber.StatusUnauthorized, "invalid or expired refresh token")
	}

	if err != nil {
		return handler.FromError(c, err)
	}

	if !account.Active {
		return handler.Fail(c, fiber.StatusForbidden, "account is disabled")
	}

	if err := s.authSvc.Tokens.Revoke(claims.ID, s.authSvc.JWT.RefreshTTL()); err != nil {
		return handler.FromError(c, err)
	}

	return s.issuePair(c, account)
}

// Logout handles POST /auth/jwt/logout: the access token, and the
// refresh token when supplied, go on the revocation list until their
// natural expiry.
func (s *Service) Logout(c *fiber.Ctx) error {
	raw := c.Get(fiber.HeaderAuthorization)
	if len(raw) > 7 {
		raw = raw[7:]
	}

	claims, err := s.authSvc.JWT.Parse(raw, auth.TokenTypeAccess)
	if err != nil {
		return handler.Fail(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	if err := s.authSvc.Tokens.Revoke(claims.ID, s.authSvc.JWT.AccessTTL()); err != nil {
		return handler.FromError(c, err)
	}

	form := &LogoutForm{}
	if err := c.BodyParser(form); err == nil && form.RefreshToken != "" {
		refreshClaims, err := s.authSvc.JWT.Parse(form.RefreshToken, auth.TokenTypeRefresh)
		if err == nil {
			if err := s.authSvc.Tokens.Revoke(refreshClaims.ID, s.authSvc.JWT.RefreshTTL()); err != nil {
				return handler.FromError(c, err)
			}
		}
	}

	return handler.OK(c, fiber.StatusOK, "logged out", nil)
}

// ForgotPassword handles POST /auth/forgot-password. The answer never
// reveals whether the email is registered; with no mailer wired up the
// reset token is written to the log.
func (s *Service) ForgotPassword(c *fiber.Ctx) error {
	form := &ForgotPasswordForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	token, err := s.authSvc.Tokens.Issue(tokens.KindReset, form.Email, s.cfg.Auth.ResetTokenTTL)
	if err != nil {
		return handler.FromError(c, err)
	}

	// TODO: deliver the token by mail once an SMTP relay is configured.
	log.Info().Str("email", form.Email).Str("token", token).Msg("password reset token issued")

	return handler.OK(c, fiber.StatusAccepted, "reset token issued", nil)
}

// ResetPassword handles POST /auth/reset-password.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	form := &ResetPasswordForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	email, err := s.authSvc.Tokens.Consume(tokens.KindReset, form.Token)
	if err != nil {
		return handler.FromError(c, err)
	}

	err = s.local.ResetPassword(email, form.Password)
	if errors.Is(err, auth.ErrAccountNotFound) {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "token does not match a local account")
	}

	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Str("email", email).Msg("password reset completed")

	return handler.OK(c, fiber.StatusOK, "password reset", nil)
}

// RequestVerifyToken handles POST /auth/request-verify.
func (s *Service) RequestVerifyToken(c *fiber.Ctx) error {
	account, ok := auth.AccountFromCtx(c)
	if !ok {
		return handler.Fail(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	if account.Verified {
		return handler.Fail(c, fiber.StatusConflict, "account is already verified")
	}

	token, err := s.authSvc.Tokens.Issue(tokens.KindVerify, account.Email, s.cfg.Auth.VerifyTokenTTL)
	if err != nil {
		return handler.FromError(c, err)
	}

	// TODO: deliver the token by mail once an SMTP relay is configured.
	log.Info().Str("email", account.Email).Str("token", token).Msg("verification token issued")

	return handler.OK(c, fiber.StatusAccepted, "verification token issued", nil)
}

// Verify handles POST /auth/verify.
func (s *Service) Verify(c *fiber.Ctx) error {
	form := &VerifyForm{}
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusUnprocessableEntity, "invalid request body")
	}

	if err := s.validator.Struct(form); err != nil {
		return handler.ValidationError(c, err)
	}

	email, err := s.authSvc.Tokens.Consume(tokens.KindVerify, form.Token)
	if err != nil {
		return handler.FromError(c, err)
	}

	if err := s.local.MarkVerified(email); err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Str("email", email).Msg("email address verified")

	return handler.OK(c, fiber.StatusOK, "email verified", nil)
}

func (s *Service) issuePair(c *fiber.Ctx, account *models.Account) error {
	pair, err := s.authSvc.JWT.GeneratePair(account)
	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Str("account_id", account.ID.String()).Msg("token pair issued")

	return handler.OK(c, fiber.StatusOK, "", pair)
}
