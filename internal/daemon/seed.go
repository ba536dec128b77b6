package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/auth"
	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/rbac"
)

const defaultAdminEmail = "admin@localhost"

// seed creates the built-in roles and the initial admin account on an
// empty database. Existing rows are never touched.
func seed(_ *config.Config, db *gorm.DB) {
	seedRoles(db)
	seedAdmin(db)
}

func seedRoles(db *gorm.DB) {
	var count int64

	db.Model(&models.Role{}).Count(&count)
	if count > 0 {
		return
	}

	roles := []models.Role{
		{
			Name:        rbac.AdminRoleName,
			Description: "Platform administrators",
			Active:      true,
			Permissions: auth.AllPermissions(),
		},
		{
			Name:        "user",
			Description: "Registered platform users",
			Active:      true,
			Permissions: models.PermissionList{},
		},
	}

	if err := db.Create(&roles).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed roles")
		return
	}

	log.Info().Msg("seeded built-in roles")
}

func seedAdmin(db *gorm.DB) {
	var count int64

	db.Model(&models.Account{}).Count(&count)
	if count > 0 {
		return
	}

	admin := models.Account{
		Active:     true,
		Superuser:  true,
		Verified:   true,
		Email:      defaultAdminEmail,
		Password:   models.HashPassword("changeme"),
		FirstName:  "Admin",
		AuthSource: models.AuthSourceLocal,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed admin account")
		return
	}

	log.Warn().
		Str("email", defaultAdminEmail).
		Msg("seeded default admin account, change its password immediately")
}
