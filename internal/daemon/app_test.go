package daemon

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/felixgeelhaar/ailevels/internal/config"
)

func testConfig() *config.LocalConfig {
	cfg := config.DefaultLocalConfig()
	for _, p := range cfg.LLM.Providers {
		p.Enabled = false
	}
	cfg.Storage.Driver = "memory"
	return cfg
}

func TestNewApp(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("ollama needs no key", func(t *testing.T) {
		cfg := testConfig()
		cfg.LLM.Providers["ollama"].Enabled = true

		app, err := NewApp(context.Background(), cfg, logger)
		if err != nil {
			t.Fatalf("NewApp() error = %v", err)
		}
		defer app.Close()

		if app.Provider != "ollama" {
			t.Errorf("Provider = %q, want ollama", app.Provider)
		}
		if app.Service == nil {
			t.Fatal("Service is nil")
		}
	})

	t.Run("keyless cloud providers are skipped", func(t *testing.T) {
		cfg := testConfig()
		cfg.LLM.Providers["claude"].Enabled = true
		cfg.LLM.Providers["openai"].Enabled = true

		if _, err := NewApp(context.Background(), cfg, logger); err == nil {
			t.Error("NewApp() expected error with no usable provider")
		}
	})

	t.Run("explicit default must exist", func(t *testing.T) {
		cfg := testConfig()
		cfg.LLM.Providers["ollama"].Enabled = true
		cfg.LLM.DefaultProvider = "gemini"

		if _, err := NewApp(context.Background(), cfg, logger); err == nil {
			t.Error("NewApp() expected error for unregistered default")
		}
	})

	t.Run("claude with key", func(t *testing.T) {
		cfg := testConfig()
		cfg.LLM.Providers["claude"].Enabled = true
		cfg.LLM.Providers["claude"].APIKey = "sk-ant-test"
		cfg.LLM.Providers["ollama"].Enabled = true
		cfg.LLM.DefaultProvider = "claude"

		app, err := NewApp(context.Background(), cfg, logger)
		if err != nil {
			t.Fatalf("NewApp() error = %v", err)
		}
		defer app.Close()

		if app.Provider != "claude" {
			t.Errorf("Provider = %q, want claude", app.Provider)
		}
		if got := app.Registry.List(); len(got) != 2 {
			t.Errorf("registered = %v, want claude and ollama", got)
		}
	})

	t.Run("bad storage driver", func(t *testing.T) {
		cfg := testConfig()
		cfg.LLM.Providers["ollama"].Enabled = true
		cfg.Storage.Driver = "cassandra"

		if _, err := NewApp(context.Background(), cfg, logger); err == nil {
			t.Error("NewApp() expected storage error")
		}
	})
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	cfg.LLM.Providers["ollama"].Enabled = true
	cfg.Daemon.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, logger) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_SetupError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Run(context.Background(), testConfig(), logger); err == nil {
		t.Fatal("Run() expected error without providers")
	}
}
