package llm

import (
	"context"
	"log/slog"
	"time"
)

// Gateway defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// GatewayConfig configures a Gateway. Zero values take the defaults above.
type GatewayConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int

	MaxAttempts int
	BaseDelay   time.Duration

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(time.Duration)

	Logger *slog.Logger
}

// Gateway sends single-turn system/user completions to a provider, retrying
// transient failures with exponential backoff.
type Gateway struct {
	provider Provider
	cfg      GatewayConfig
	logger   *slog.Logger
}

// NewGateway creates a gateway over p.
func NewGateway(p Provider, cfg GatewayConfig) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{provider: p, cfg: cfg, logger: logger}
}

// Invoke runs one completion. maxTokens <= 0 uses the configured default.
//
// Attempt n (0-based) that fails transiently is followed by a wait of
// BaseDelay * 2^n. Non-transient errors return immediately. When every
// attempt fails, the last transient error is returned unchanged.
func (g *Gateway) Invoke(ctx context.Context, system, user string, maxTokens int) (*Response, error) {
	if maxTokens <= 0 {
		maxTokens = g.cfg.MaxTokens
	}
	req := &Request{
		Model:       g.cfg.Model,
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: user}},
		MaxTokens:   maxTokens,
		Temperature: g.cfg.Temperature,
	}

	var lastErr error
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		resp, err := g.provider.Generate(ctx, req)
		if err == nil {
			if resp.Truncated() {
				g.logger.Warn("completion truncated at max tokens",
					"provider", g.provider.Name(),
					"max_tokens", maxTokens)
			}
			return resp, nil
		}

		if !IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err

		if attempt == g.cfg.MaxAttempts-1 {
			break
		}
		delay := g.cfg.BaseDelay << attempt
		g.logger.Warn("completion failed, retrying",
			"provider", g.provider.Name(),
			"error", err,
			"delay", delay,
			"attempt", attempt+1,
			"max_attempts", g.cfg.MaxAttempts)
		g.cfg.Sleep(delay)
	}

	return nil, lastErr
}

// ProviderName returns the name of the underlying provider.
func (g *Gateway) ProviderName() string {
	return g.provider.Name()
}
