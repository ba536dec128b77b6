// Package dsn provides Data Source Name construction and gorm dialector
// selection for database connections.
package dsn

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/config"
)

// Create builds the Data Source Name from the configuration for the
// selected engine.
func Create(cfg *config.Config) string {
	switch cfg.DB.Engine {
	case config.EngineMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Name,
			cfg.DB.Extras,
		)
	case config.EnginePostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Name,
			cfg.DB.Extras,
		)
	default:
		if cfg.DB.Path == "" {
			return "./jobready.db"
		}

		return cfg.DB.Path
	}
}

// Dialector returns the gorm dialector for the configured engine.
func Dialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.Engine {
	case config.EngineMySQL:
		return mysql.Open(Create(cfg))
	case config.EnginePostgres:
		return postgres.Open(Create(cfg))
	default:
		return sqlite.Open(Create(cfg))
	}
}
