package auth

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/db/models"
)

// LocalProvider authenticates accounts against the local database using
// argon2id password hashes.
type LocalProvider struct {
	db *gorm.DB
}

// NewLocalProvider returns a LocalProvider backed by the given database.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{db: db}
}

// Authenticate verifies an email/password credential and returns the
// matching account. The totpCode is required when the account has two
// factor authentication enrolled.
func (p *LocalProvider) Authenticate(email, password, totpCode string) (*models.Account, error) {
	var account models.Account

	err := p.db.First(&account, "email = ? AND auth_source = ?",
		normalizeEmail(email), models.AuthSourceLocal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to query account")
	}

	if !account.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	if !account.Active {
		return nil, ErrAccountDisabled
	}

	if account.TOTPSecret != "" {
		if totpCode == "" {
			return nil, ErrTOTPRequired
		}

		if !ValidateTOTP(totpCode, account.TOTPSecret) {
			return nil, ErrInvalidTOTP
		}
	}

	return &account, nil
}

// Register creates a new local account. New accounts start active,
// unverified and without any roles.
func (p *LocalProvider) Register(email, password, firstName, lastName string) (*models.Account, error) {
	account := models.Account{
		Active:     true,
		Email:      normalizeEmail(email),
		Password:   models.HashPassword(password),
		FirstName:  firstName,
		LastName:   lastName,
		AuthSource: models.AuthSourceLocal,
	}

	err := p.db.Create(&account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrEmailExists
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to create account")
	}

	return &account, nil
}

// ChangePassword updates the password after verifying the current one.
func (p *LocalProvider) ChangePassword(accountID uuid.UUID, oldPassword, newPassword string) error {
	var account models.Account

	err := p.db.First(&account, "id = ? AND auth_source = ?",
		accountID, models.AuthSourceLocal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}

	if err != nil {
		return errors.Wrap(err, "failed to query account")
	}

	if !account.VerifyPassword(oldPassword) {
		return ErrInvalidPassword
	}

	return p.setPassword(&account, newPassword)
}

// ResetPassword sets a new password without requiring the old one. It is
// only reachable through a valid single use reset token.
func (p *LocalProvider) ResetPassword(email, newPassword string) error {
	var account models.Account

	err := p.db.First(&account, "email = ? AND auth_source = ?",
		normalizeEmail(email), models.AuthSourceLocal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}

	if err != nil {
		return errors.Wrap(err, "failed to query account")
	}

	return p.setPassword(&account, newPassword)
}

// MarkVerified flags the account's email address as confirmed.
func (p *LocalProvider) MarkVerified(email string) error {
	res := p.db.Model(&models.Account{}).
		Where("email = ?", normalizeEmail(email)).
		Update("verified", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to mark account verified")
	}

	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (p *LocalProvider) setPassword(account *models.Account, password string) error {
	err := p.db.Model(account).Update("password", models.HashPassword(password)).Error
	if err != nil {
		return errors.Wrap(err, "failed to update password")
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
