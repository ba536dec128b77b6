package auth

import "github.com/pkg/errors"

var (
	// ErrAccountNotFound is returned when no account matches the credential.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountDisabled is returned when the account exists but is inactive.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrEmailExists is returned on registration with an email already in use.
	ErrEmailExists = errors.New("email address already registered")

	// ErrInvalidToken is returned for malformed or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrWrongTokenType is returned when an access token is presented where
	// a refresh token is expected, or the other way around.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrTOTPRequired is returned on login when the account has two factor
	// authentication enabled and no code was supplied.
	ErrTOTPRequired = errors.New("totp code required")

	// ErrInvalidTOTP is returned when the supplied TOTP code does not verify.
	ErrInvalidTOTP = errors.New("invalid totp code")

	// ErrLDAPDisabled is returned when LDAP authentication is attempted but
	// not enabled in the configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is not enabled")

	// ErrOIDCDisabled is returned when OIDC authentication is attempted but
	// not enabled in the configuration.
	ErrOIDCDisabled = errors.New("oidc authentication is not enabled")
)
