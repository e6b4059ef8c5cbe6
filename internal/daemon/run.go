package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/ailevels/internal/config"
)

// ShutdownTimeout bounds how long in-flight requests may finish after the
// run context ends.
const ShutdownTimeout = 30 * time.Second

// Run assembles the app and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.LocalConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	server := NewServer(ServerConfig{
		Config:   cfg,
		Service:  app.Service,
		Provider: app.Provider,
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
