package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/vmartins/esterbot/core/config"
	coredatabase "github.com/vmartins/esterbot/core/database"
	"github.com/vmartins/esterbot/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	Connect func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate func(coreconfig.DatabaseConfig) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no history database is configured.
	DB *sqlx.DB
}

// Run initializes the logger and, when configured, connects to the history
// database and applies migrations.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	logger.Init(logger.Options{
		Level:   opts.Config.Logging.Level,
		Format:  opts.Config.Logging.Format,
		Profile: opts.Config.Logging.Profile,
	})

	if !opts.Config.HistoryEnabled() {
		return &Result{}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Config.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
