package cmd

import (
	"context"
	"fmt"

	"happyfool/config"
	"happyfool/database"
	"happyfool/infrastructure"
	"happyfool/repository"
	"happyfool/repository/gormstore"

	log "github.com/sirupsen/logrus"
)

// store is the opened ledger backend
type store struct {
	repositories infrastructure.RepositoryFactory
	ping         func(ctx context.Context) error
	close        func()
}

// openStore connects to the configured backend and brings its schema up to date
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		databaseURL := cfg.GetDatabaseURL()
		log.Info("Running database migrations...")
		if err := database.RunMigrationsWithURL(databaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &store{
			repositories: repository.NewUnitOfWorkFactory(db),
			ping:         db.Ping,
			close:        db.Close,
		}, nil

	case config.StoreDriverSQLite:
		log.WithField("path", cfg.SQLitePath).Info("Opening sqlite database...")
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := gormstore.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		return &store{
			repositories: gormstore.NewUnitOfWorkFactory(db),
			ping:         db.Ping,
			close: func() {
				if err := db.Close(); err != nil {
					log.WithError(err).Error("Error closing sqlite database")
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}
}
