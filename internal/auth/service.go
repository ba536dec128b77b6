package auth

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/rbac"
	"github.com/ai-job-readiness/jobready/internal/tokens"
)

// Service bundles the pieces the HTTP layer needs to authenticate
// requests and authorize operations: account lookup, role backed
// permission checks, JWT signing and the token store.
type Service struct {
	db   *gorm.DB
	rbac *rbac.Service

	// JWT signs and verifies access and refresh tokens.
	JWT *TokenManager

	// Tokens holds refresh tokens, single use flow tokens and the
	// access token revocation list.
	Tokens *tokens.Store
}

// NewService returns a Service wired to the given collaborators.
func NewService(db *gorm.DB, rbacService *rbac.Service, jwt *TokenManager, store *tokens.Store) *Service {
	return &Service{
		db:     db,
		rbac:   rbacService,
		JWT:    jwt,
		Tokens: store,
	}
}

// RBAC exposes the role service for handlers that manage roles directly.
func (s *Service) RBAC() *rbac.Service {
	return s.rbac
}

// GetAccount loads an account by ID.
func (s *Service) GetAccount(id uuid.UUID) (*models.Account, error) {
	var account models.Account

	err := s.db.First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to load account")
	}

	return &account, nil
}

// Can reports whether the account may perform an operation guarded by the
// permission: the account must be active, and be a superuser or hold the
// permission through an active role assignment.
func (s *Service) Can(account *models.Account, required models.Permission) (bool, error) {
	if !account.Active {
		return false, nil
	}

	if account.Superuser {
		return true, nil
	}

	return s.rbac.HasPermission(account.ID, required)
}
