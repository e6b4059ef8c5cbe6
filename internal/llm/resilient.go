package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
)

// ResilientProvider wraps an LLM provider with resilience patterns from
// fortify. Retrying is left to the Gateway so the attempt count and backoff
// stay in one place.
type ResilientProvider struct {
	provider       Provider
	circuitBreaker circuitbreaker.CircuitBreaker[*Response]
	bulkhead       bulkhead.Bulkhead[*Response]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
	name           string
}

// ResilientConfig selects the fortify patterns placed in front of a
// provider. Zero limits fall back to the defaults below.
type ResilientConfig struct {
	EnableCircuitBreaker bool
	EnableBulkhead       bool
	EnableRateLimit      bool // local token bucket, keyed by provider name

	MaxConcurrent    int // bulkhead slots; queue is twice this
	RatePerSecond    int
	FailureThreshold int // consecutive failures that open the breaker

	Logger *slog.Logger
}

// DefaultResilientConfig returns sensible defaults for LLM resilience
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxConcurrent:        5,
		RatePerSecond:        2,
		FailureThreshold:     5,
	}
}

// NewResilientProvider wraps a provider with resilience patterns using fortify
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	rp := &ResilientProvider{
		provider: provider,
		logger:   cfg.Logger,
		name:     provider.Name(),
	}

	if cfg.EnableCircuitBreaker {
		threshold := cfg.FailureThreshold
		if threshold <= 0 {
			threshold = 5
		}
		rp.circuitBreaker = circuitbreaker.New[*Response](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= threshold
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				if rp.logger != nil {
					rp.logger.Warn("llm circuit breaker", "provider", rp.name, "from", from.String(), "to", to.String())
				}
			},
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 5
		}
		rp.bulkhead = bulkhead.New[*Response](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 2
		}
		rp.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 3,
			Interval: time.Second,
		})
	}

	return rp
}

func (p *ResilientProvider) Name() string {
	return p.name
}

// Generate runs the call through rate limit, breaker and bulkhead in that
// order. A local rate-limit rejection is reported as ErrRateLimit so the
// gateway backs off and retries it like a provider 429. An open breaker is
// returned as is and ends the gateway's retry loop.
func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if p.rateLimit != nil && !p.rateLimit.Allow(ctx, p.name) {
		return nil, &ErrRateLimit{Err: fmt.Errorf("%s: local rate limit exceeded", p.name)}
	}

	call := func(ctx context.Context) (*Response, error) {
		return p.provider.Generate(ctx, req)
	}
	if p.bulkhead != nil {
		limited := call
		call = func(ctx context.Context) (*Response, error) {
			return p.bulkhead.Execute(ctx, limited)
		}
	}

	var (
		resp *Response
		err  error
	)
	if p.circuitBreaker != nil {
		resp, err = p.circuitBreaker.Execute(ctx, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil && p.logger != nil && !IsTransient(err) {
		p.logger.Debug("provider call failed", "provider", p.name, "error", err)
	}
	return resp, err
}

// Close stops the rate limiter's background cleanup.
func (p *ResilientProvider) Close() error {
	if p.rateLimit != nil {
		return p.rateLimit.Close()
	}
	return nil
}
