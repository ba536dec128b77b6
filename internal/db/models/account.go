package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuthSource represents the authentication source for an account.
// It indicates how the account authenticates (local database, LDAP, or OIDC).
type AuthSource string

const (
	// AuthSourceLocal indicates the account authenticates with a local database password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceOIDC indicates the account authenticates via OpenID Connect (OIDC).
	AuthSourceOIDC AuthSource = "oidc"
	// AuthSourceLDAP indicates the account authenticates via LDAP or Active Directory.
	AuthSourceLDAP AuthSource = "ldap"
)

// Account represents an authenticated principal of the platform.
// Accounts own profile attributes and a collection of role assignments;
// their effective permissions are derived from the roles reachable
// through active assignments.
type Account struct {
	// ID is the unique identifier for the account. It is immutable after creation.
	ID uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	// Active indicates whether the account is enabled and can log in.
	Active bool
	// Superuser short-circuits all permission checks for this account.
	Superuser bool
	// Verified indicates whether the email address was confirmed.
	Verified bool
	// Email is the globally unique address used for login.
	Email string `gorm:"unique;size:255;not null"`
	// Password is the Argon2id hashed password (only used for local authentication).
	Password string `gorm:"size:255"`
	// FirstName is the account holder's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the account holder's last or family name.
	LastName string `gorm:"size:100"`
	// Phone is an optional contact number.
	Phone string `gorm:"size:50"`
	// Bio is an optional free text self description.
	Bio string `gorm:"size:1000"`
	// AuthSource indicates how this account authenticates (local, oidc, or ldap).
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the external identifier for OIDC (sub claim) or LDAP (DN) accounts.
	ExternalID string `gorm:"size:255"`
	// TOTPSecret is the shared secret for the optional TOTP second factor.
	// Empty means two-factor is not enrolled.
	TOTPSecret string `gorm:"size:255"`
	// Assignments are the role grants owned by this account.
	Assignments []Assignment `gorm:"foreignKey:AccountID"`
	// CreatedAt is the timestamp when the account was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the account was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate assigns a fresh UUID if none was provided.
func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	return nil
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating local account passwords.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the account's stored hash.
// It uses constant-time comparison to prevent timing attacks.
func (a *Account) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, a.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
