package db

import (
	"context"
	"fmt"

	"learnjs_backend/internal/config"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"
	"learnjs_backend/internal/repository/memory"
)

// OpenStore returns the storage backend selected by cfg.Storage. Postgres
// migrations run first unless AutoMigrate is off.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	pool, err := Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Info("database connected")
	return repository.NewPostgresStore(pool), nil
}
