package backend

import (
	"context"
	"fmt"

	"moneh/internal/log"
	"moneh/internal/storage"
	"moneh/internal/storage/memory"
	"moneh/internal/storage/postgres"
)

// Open creates the repository described by cfg.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBackend)

	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLitePath)
		return &Result{Repository: repo, Type: SQLite, Cleanup: repo.Close}, nil

	case Postgres:
		repo, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		logger.Info("Initialized Postgres backend")
		return &Result{Repository: repo, Type: Postgres, Cleanup: repo.Close}, nil

	case Memory:
		logger.Warn("Initialized memory backend, data is lost on restart")
		store := memory.New()
		return &Result{Repository: store, Type: Memory, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

// OpenURL parses a DATABASE_URL value and opens the backend it names.
func OpenURL(ctx context.Context, databaseURL string, logger *log.Logger) (*Result, error) {
	cfg, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, logger)
}
