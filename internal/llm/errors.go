package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrRateLimit indicates the provider throttled the request.
type ErrRateLimit struct {
	Err error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrTimeout indicates the model did not answer in time.
type ErrTimeout struct {
	Err error
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("LLM provider timed out: %v", e.Err)
}

func (e *ErrTimeout) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var (
		rl *ErrRateLimit
		un *ErrProviderUnavailable
		to *ErrTimeout
	)
	return errors.As(err, &rl) || errors.As(err, &un) || errors.As(err, &to)
}

// classifyStatus maps an HTTP status from a provider API to an error type.
// Statuses that are not transient come back wrapped but unclassified.
func classifyStatus(provider string, code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return &ErrTimeout{Err: err}
	case code >= 500:
		return &ErrProviderUnavailable{Err: err}
	}
	return fmt.Errorf("%s: %w", provider, err)
}

// classifyTransport maps an error that carried no HTTP status.
func classifyTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ErrTimeout{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
