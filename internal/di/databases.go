package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aristath/tradesignal/internal/config"
	"github.com/aristath/tradesignal/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens and migrates both databases
func InitializeDatabases(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. config.db - strategies, strategy versions, directive enablement
	configDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "config.db"),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config database: %w", err)
	}
	container.ConfigDB = configDB

	// 2. history.db - composite scores, trade signals, risk assessments, position clock
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileLedger, // audit trail of every decision
		Name:    "history",
	})
	if err != nil {
		configDB.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	for _, db := range []*database.DB{configDB, historyDB} {
		if err := db.Migrate(ctx); err != nil {
			configDB.Close()
			historyDB.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}

// Databases returns the open databases by name.
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.ConfigDB != nil {
		dbs["config"] = c.ConfigDB
	}
	if c.HistoryDB != nil {
		dbs["history"] = c.HistoryDB
	}
	return dbs
}
