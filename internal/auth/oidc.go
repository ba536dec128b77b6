package auth

import (
	"context"

	oidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/uniuri"
)

// OIDCProvider authenticates accounts through an OpenID Connect
// authorization code flow. Matched users are provisioned as Account rows
// keyed on the sub claim.
type OIDCProvider struct {
	db       *gorm.DB
	cfg      config.OIDC
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
}

type oidcClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// NewOIDCProvider discovers the issuer and returns a configured
// provider. Returns ErrOIDCDisabled when OIDC is not enabled.
func NewOIDCProvider(ctx context.Context, db *gorm.DB, cfg config.OIDC) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, errors.Wrap(err, "oidc issuer discovery failed")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCProvider{
		db:       db,
		cfg:      cfg,
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
	}, nil
}

// NewStateToken returns a fresh random state parameter. The caller
// stores it server side and matches it on callback.
func (p *OIDCProvider) NewStateToken() string {
	return uniuri.NewLen(uniuri.TokenLen)
}

// AuthURL returns the authorization endpoint URL for the state parameter.
func (p *OIDCProvider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// HandleCallback exchanges the authorization code, verifies the ID token
// and returns the provisioned account.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*models.Account, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "oidc code exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("token response carries no id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "oidc id token verification failed")
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "failed to decode oidc claims")
	}

	if claims.Email == "" {
		return nil, errors.New("oidc id token carries no email claim")
	}

	account, err := p.upsertAccount(claims)
	if err != nil {
		return nil, err
	}

	if !account.Active {
		return nil, ErrAccountDisabled
	}

	return account, nil
}

// upsertAccount provisions or refreshes the Account row for the ID token
// claims, keyed on the sub claim.
func (p *OIDCProvider) upsertAccount(claims oidcClaims) (*models.Account, error) {
	var account models.Account

	err := p.db.First(&account, "external_id = ? AND auth_source = ?",
		claims.Subject, models.AuthSourceOIDC).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = models.Account{
			Active:     true,
			Verified:   claims.EmailVerified,
			Email:      normalizeEmail(claims.Email),
			FirstName:  claims.GivenName,
			LastName:   claims.FamilyName,
			AuthSource: models.AuthSourceOIDC,
			ExternalID: claims.Subject,
		}

		if err := p.db.Create(&account).Error; err != nil {
			return nil, errors.Wrap(err, "failed to provision oidc account")
		}

		log.Info().Str("email", account.Email).Msg("provisioned oidc account")

		return &account, nil

	case err != nil:
		return nil, errors.Wrap(err, "failed to query oidc account")
	}

	updates := map[string]interface{}{
		"email":      normalizeEmail(claims.Email),
		"verified":   claims.EmailVerified,
		"first_name": claims.GivenName,
		"last_name":  claims.FamilyName,
	}

	if err := p.db.Model(&account).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "failed to refresh oidc account")
	}

	return &account, nil
}
