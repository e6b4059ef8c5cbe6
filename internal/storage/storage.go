// Package storage opens the assessment.Store selected by configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/config"
	"github.com/felixgeelhaar/ailevels/internal/storage/memory"
	"github.com/felixgeelhaar/ailevels/internal/storage/postgres"
	"github.com/felixgeelhaar/ailevels/internal/storage/redis"
	"github.com/felixgeelhaar/ailevels/internal/storage/sqlite"
)

// Drivers lists the accepted storage.driver values.
var Drivers = []string{"sqlite", "postgres", "redis", "memory"}

// Open returns the configured store and a function that releases it.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (assessment.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return sqlite.NewStore(db), db.Close, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("storage driver postgres requires database_url")
		}
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil

	case "redis":
		s, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case "memory":
		logger.Warn("using in-memory storage; progress is lost on restart")
		return memory.NewStore(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q (want one of %v)", cfg.Driver, Drivers)
	}
}
