package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/config"
	"github.com/felixgeelhaar/ailevels/internal/events"
	"github.com/felixgeelhaar/ailevels/internal/llm"
	"github.com/felixgeelhaar/ailevels/internal/storage"
)

// App holds the assembled service and everything that must be closed with it.
type App struct {
	Service  *assessment.Service
	Registry *llm.Registry
	Provider string

	closers []func() error
}

// NewApp wires providers, storage and events from cfg.
func NewApp(ctx context.Context, cfg *config.LocalConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{}

	registry := llm.NewRegistry()
	closeProviders, err := setupLLMProviders(ctx, cfg, registry, logger)
	app.closers = append(app.closers, closeProviders...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("setup llm providers: %w", err)
	}
	if cfg.LLM.DefaultProvider != "" && cfg.LLM.DefaultProvider != "auto" {
		if err := registry.SetDefault(cfg.LLM.DefaultProvider); err != nil {
			app.Close()
			return nil, err
		}
	}
	provider, err := registry.Default()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("no LLM provider configured: %w", err)
	}
	app.Registry = registry
	app.Provider = provider.Name()

	gateway := llm.NewGateway(provider, llm.GatewayConfig{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxAttempts: cfg.LLM.Retry.MaxAttempts,
		BaseDelay:   cfg.LLM.Retry.BaseDelay,
		Logger:      logger,
	})

	store, closeStore, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	app.closers = append(app.closers, closeStore)

	thresholds := assessment.NewThresholdResolver(
		assessment.MapSource(config.ThresholdValues(cfg, os.Environ())), logger)

	opts := []assessment.Option{assessment.WithLogger(logger)}
	if cfg.Events.Enabled {
		conn, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Queue, logger)
		if err != nil {
			// completions are still stored without the broker
			logger.Warn("level events disabled, broker unreachable", "error", err)
		} else {
			app.closers = append(app.closers, conn.Close)
			opts = append(opts, assessment.WithEvents(events.NewPublisher(conn, logger)))
		}
	}

	app.Service = assessment.NewService(gateway, store, thresholds, opts...)
	return app, nil
}

// Close releases storage and broker connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// setupLLMProviders registers every enabled provider, each behind the
// resilience wrapper, and returns the wrappers' Close funcs.
func setupLLMProviders(ctx context.Context, cfg *config.LocalConfig, registry *llm.Registry, logger *slog.Logger) ([]func() error, error) {
	var closers []func() error
	res := cfg.LLM.Resilience
	wrap := func(p llm.Provider) llm.Provider {
		rp := llm.NewResilientProvider(p, llm.ResilientConfig{
			EnableCircuitBreaker: res.CircuitBreaker,
			EnableBulkhead:       res.Bulkhead,
			EnableRateLimit:      res.RateLimit,
			MaxConcurrent:        res.MaxConcurrent,
			RatePerSecond:        res.RatePerSecond,
			FailureThreshold:     res.FailureThreshold,
			Logger:               logger,
		})
		closers = append(closers, rp.Close)
		return rp
	}

	for name, providerCfg := range cfg.LLM.Providers {
		if providerCfg == nil || !providerCfg.Enabled {
			continue
		}

		var (
			provider llm.Provider
			err      error
		)
		switch name {
		case "claude":
			if providerCfg.APIKey == "" {
				logger.Debug("Claude provider enabled but no API key set")
				continue
			}
			provider, err = llm.NewClaudeProvider(llm.ClaudeConfig{
				APIKey:  providerCfg.APIKey,
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
			})
		case "openai":
			if providerCfg.APIKey == "" {
				logger.Debug("OpenAI provider enabled but no API key set")
				continue
			}
			provider, err = llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey:  providerCfg.APIKey,
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
			})
		case "gemini":
			if providerCfg.APIKey == "" {
				logger.Debug("Gemini provider enabled but no API key set")
				continue
			}
			provider, err = llm.NewGeminiProvider(ctx, llm.GeminiConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
		case "ollama":
			provider = llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
			})
		default:
			logger.Warn("unknown LLM provider in config", "name", name)
			continue
		}
		if err != nil {
			return closers, fmt.Errorf("%s: %w", name, err)
		}

		registry.Register(name, wrap(provider))
		logger.Info("registered LLM provider", "name", name, "model", providerCfg.Model)
	}
	return closers, nil
}
