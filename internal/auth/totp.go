package auth

import (
	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateTOTPKey creates a fresh TOTP key for an account. The key's
// secret is held in the pending enrollment store until the account
// confirms it with a valid code; only then is it persisted.
func GenerateTOTPKey(issuer, email string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: email,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate totp key")
	}

	return key, nil
}

// ValidateTOTP reports whether the code is valid for the secret at the
// current time.
func ValidateTOTP(code, secret string) bool {
	return totp.Validate(code, secret)
}
