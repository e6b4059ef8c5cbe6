package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/ailevels/internal/config"
	"github.com/felixgeelhaar/ailevels/internal/storage/memory"
	"github.com/felixgeelhaar/ailevels/internal/storage/sqlite"
)

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("sqlite creates and migrates the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "levels.db")
		store, closeFn, err := Open(ctx, config.StorageConfig{Driver: "sqlite", Path: path}, logger)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer closeFn()
		if _, ok := store.(*sqlite.Store); !ok {
			t.Errorf("store = %T, want *sqlite.Store", store)
		}
	})

	t.Run("memory", func(t *testing.T) {
		store, closeFn, err := Open(ctx, config.StorageConfig{Driver: "memory"}, logger)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer closeFn()
		if _, ok := store.(*memory.Store); !ok {
			t.Errorf("store = %T, want *memory.Store", store)
		}
	})

	t.Run("postgres without url", func(t *testing.T) {
		if _, _, err := Open(ctx, config.StorageConfig{Driver: "postgres"}, logger); err == nil {
			t.Error("Open() expected error")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		if _, _, err := Open(ctx, config.StorageConfig{Driver: "dynamo"}, logger); err == nil {
			t.Error("Open() expected error")
		}
	})
}
