// Package daemon boots the application: it opens the database, runs the
// migrations and seed data, chooses the token storage backend and wires
// up the web service.
package daemon

import (
	"strconv"

	"github.com/gofiber/storage"
	"github.com/gofiber/storage/memory/v2"
	storagemysql "github.com/gofiber/storage/mysql/v2"
	storagepostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ai-job-readiness/jobready/internal/config"
	"github.com/ai-job-readiness/jobready/internal/db/dsn"
	"github.com/ai-job-readiness/jobready/internal/db/models"
	"github.com/ai-job-readiness/jobready/internal/tokens"
	"github.com/ai-job-readiness/jobready/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(d.cfg.Webserver.Domain + ":" + strconv.Itoa(d.cfg.Webserver.Port))
}

// WaitShutdown blocks until the web service has shut down gracefully.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	// TranslateError turns driver duplicate key errors into
	// gorm.ErrDuplicatedKey, which the services map to conflicts.
	db, err := gorm.Open(dsn.Dialector(cfg), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.Account{},
		&models.Role{},
		&models.Assignment{},
		&models.Resume{},
		&models.Score{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db, tokens.New(tokenStorage(cfg))),
	}
}

// tokenStorage picks the token store backend matching the database
// engine, so tokens survive restarts wherever the data does.
func tokenStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.Engine {
	case config.EngineMySQL:
		return storagemysql.New(storagemysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "auth_tokens",
		})
	case config.EnginePostgres:
		return storagepostgres.New(storagepostgres.Config{
			ConnectionURI: "postgresql://" + cfg.DB.User + ":" + cfg.DB.Password +
				"@" + cfg.DB.Host + ":" + strconv.Itoa(cfg.DB.Port) + "/" + cfg.DB.Name,
			Table: "auth_tokens",
		})
	default:
		// sqlite deployments keep tokens in memory; they are
		// re-issued after a restart.
		return memory.New()
	}
}
