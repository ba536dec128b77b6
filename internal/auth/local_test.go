package auth

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Account{}, &models.Role{}, &models.Assignment{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	p := NewLocalProvider(setupTestDB(t))

	account, err := p.Register("New.User@Example.com", "s3cret-password", "New", "User")
	require.NoError(t, err)

	// Email is normalized on the way in.
	assert.Equal(t, "new.user@example.com", account.Email)
	assert.True(t, account.Active)
	assert.False(t, account.Verified)
	assert.Equal(t, models.AuthSourceLocal, account.AuthSource)
	assert.NotEqual(t, "s3cret-password", account.Password)

	got, err := p.Authenticate("new.user@example.com", "s3cret-password", "")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	p := NewLocalProvider(setupTestDB(t))

	_, err := p.Register("dup@example.com", "password-one", "", "")
	require.NoError(t, err)

	_, err = p.Register("dup@example.com", "password-two", "", "")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	p := NewLocalProvider(setupTestDB(t))

	_, err := p.Register("user@example.com", "right-password", "", "")
	require.NoError(t, err)

	_, err = p.Authenticate("user@example.com", "wrong-password", "")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	p := NewLocalProvider(setupTestDB(t))

	_, err := p.Authenticate("nobody@example.com", "whatever", "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	account, err := p.Register("off@example.com", "s3cret-password", "", "")
	require.NoError(t, err)

	require.NoError(t, db.Model(account).Update("active", false).Error)

	_, err = p.Authenticate("off@example.com", "s3cret-password", "")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthenticateRequiresTOTPWhenEnrolled(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	account, err := p.Register("2fa@example.com", "s3cret-password", "", "")
	require.NoError(t, err)

	require.NoError(t, db.Model(account).Update("totp_secret", "JBSWY3DPEHPK3PXP").Error)

	_, err = p.Authenticate("2fa@example.com", "s3cret-password", "")
	assert.ErrorIs(t, err, ErrTOTPRequired)

	_, err = p.Authenticate("2fa@example.com", "s3cret-password", "000000")
	assert.ErrorIs(t, err, ErrInvalidTOTP)
}

func TestChangePassword(t *testing.T) {
	p := NewLocalProvider(setupTestDB(t))

	account, err := p.Register("change@example.com", "old-password", "", "")
	require.NoError(t, err)

	err = p.ChangePassword(account.ID, "not-the-old-password", "new-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	require.NoError(t, p.ChangePassword(account.ID, "old-password", "new-password"))

	_, err = p.Authenticate("change@example.com", "old-password", "")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = p.Authenticate("change@example.com", "new-password", "")
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	p := NewLocalProvider(setupTestDB(t))

	_, err := p.Register("reset@example.com", "forgotten", "", "")
	require.NoError(t, err)

	require.NoError(t, p.ResetPassword("reset@example.com", "brand-new"))

	_, err = p.Authenticate("reset@example.com", "brand-new", "")
	assert.NoError(t, err)

	err = p.ResetPassword("missing@example.com", "whatever")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMarkVerified(t *testing.T) {
	db := setupTestDB(t)
	p := NewLocalProvider(db)

	account, err := p.Register("verify@example.com", "s3cret-password", "", "")
	require.NoError(t, err)
	assert.False(t, account.Verified)

	require.NoError(t, p.MarkVerified("verify@example.com"))

	var got models.Account
	require.NoError(t, db.First(&got, "id = ?", account.ID).Error)
	assert.True(t, got.Verified)

	err = p.MarkVerified("missing@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
