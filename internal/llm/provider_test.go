package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// mockProvider is a test implementation of Provider
type mockProvider struct {
	name     string
	response *Response
	err      error
	calls    int
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if len(r.List()) != 0 {
		t.Errorf("new registry should be empty, got %v", r.List())
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()
	r.Register("claude", &mockProvider{name: "claude"})

	if err := r.SetDefault("claude"); err != nil {
		t.Fatalf("SetDefault(claude) error = %v", err)
	}
	if r.DefaultName() != "claude" {
		t.Errorf("DefaultName() = %v, want claude", r.DefaultName())
	}

	err := r.SetDefault("missing")
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("SetDefault(missing) error = %v, want ErrProviderNotFound", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register("ollama", &mockProvider{name: "ollama"})

	p, err := r.Get("ollama")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Name() = %v, want ollama", p.Name())
	}

	if _, err := r.Get("nope"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Get(nope) error = %v, want ErrProviderNotFound", err)
	}
}

func TestRegistry_Default(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Default(); !errors.Is(err, ErrNoDefaultProvider) {
		t.Fatalf("Default() on empty registry error = %v", err)
	}

	r.Register("openai", &mockProvider{name: "openai"})
	r.Register("claude", &mockProvider{name: "claude"})

	// auto picks the first name in sorted order
	p, err := r.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if p.Name() != "claude" {
		t.Errorf("auto Default() = %v, want claude", p.Name())
	}

	if err := r.SetDefault("openai"); err != nil {
		t.Fatal(err)
	}
	p, _ = r.Default()
	if p.Name() != "openai" {
		t.Errorf("Default() = %v, want openai", p.Name())
	}
}

func TestRegistry_Concurrency(t *testing.T) {
	r := NewRegistry()
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(n int) {
			name := fmt.Sprintf("provider-%d", n)
			r.Register(name, &mockProvider{name: name})
			done <- true
		}(i)

		go func() {
			r.List()
			r.DefaultName()
			done <- true
		}()
	}

	for i := 0; i < 20; i++ {
		<-done
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &ErrRateLimit{Err: base}, true},
		{"unavailable", &ErrProviderUnavailable{Err: base}, true},
		{"timeout", &ErrTimeout{Err: base}, true},
		{"wrapped timeout", fmt.Errorf("call: %w", &ErrTimeout{Err: base}), true},
		{"plain", base, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("api")
	tests := []struct {
		code      int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusInternalServerError, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusRequestTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := classifyStatus("test", tt.code, base)
			if IsTransient(err) != tt.transient {
				t.Errorf("classifyStatus(%d) transient = %v, want %v", tt.code, IsTransient(err), tt.transient)
			}
			if !errors.Is(err, base) {
				t.Error("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	if err := classifyTransport("x", context.Canceled); IsTransient(err) {
		t.Error("cancellation should not be transient")
	}
	var to *ErrTimeout
	if err := classifyTransport("x", context.DeadlineExceeded); !errors.As(err, &to) {
		t.Errorf("deadline should map to ErrTimeout, got %T", err)
	}
	var un *ErrProviderUnavailable
	if err := classifyTransport("x", errors.New("connection refused")); !errors.As(err, &un) {
		t.Errorf("network error should map to ErrProviderUnavailable, got %T", err)
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(
		MockResponse{Content: "first"},
		MockResponse{Err: &ErrRateLimit{}},
	)

	resp, err := m.Generate(context.Background(), &Request{System: "s"})
	if err != nil || resp.Content != "first" || resp.StopReason != StopEnd {
		t.Fatalf("first Generate() = %+v, %v", resp, err)
	}
	if _, err := m.Generate(context.Background(), &Request{}); !IsTransient(err) {
		t.Errorf("second Generate() error = %v, want rate limit", err)
	}
	if _, err := m.Generate(context.Background(), &Request{}); !IsTransient(err) {
		t.Errorf("empty queue error = %v, want unavailable", err)
	}
	if got := len(m.Calls()); got != 3 {
		t.Errorf("Calls() = %d, want 3", got)
	}
	if m.Calls()[0].System != "s" {
		t.Error("first call should record the system prompt")
	}
}

// Tests for ResilientProvider

func TestDefaultResilientConfig(t *testing.T) {
	cfg := DefaultResilientConfig()

	if !cfg.EnableCircuitBreaker || !cfg.EnableBulkhead || !cfg.EnableRateLimit {
		t.Errorf("all patterns should be enabled by default: %+v", cfg)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.MaxConcurrent)
	}
	if cfg.RatePerSecond != 2 {
		t.Errorf("RatePerSecond = %d, want 2", cfg.RatePerSecond)
	}
}

func TestNewResilientProvider_NoPatterns(t *testing.T) {
	rp := NewResilientProvider(&mockProvider{name: "test"}, ResilientConfig{})

	if rp.circuitBreaker != nil || rp.bulkhead != nil || rp.rateLimit != nil {
		t.Error("patterns should be nil when disabled")
	}
	if err := rp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestResilientProvider_Generate_Success(t *testing.T) {
	p := &mockProvider{name: "test", response: &Response{Content: "ok"}}
	rp := NewResilientProvider(p, DefaultResilientConfig())
	defer rp.Close()

	resp, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %v, want ok", resp.Content)
	}
	if rp.Name() != "test" {
		t.Errorf("Name() = %v, want test", rp.Name())
	}
}

func TestResilientProvider_LocalRateLimitThenClose(t *testing.T) {
	p := &mockProvider{name: "test", response: &Response{Content: "ok"}}
	rp := NewResilientProvider(p, ResilientConfig{EnableRateLimit: true, RatePerSecond: 1})

	var err error
	for i := 0; i < 10 && err == nil; i++ {
		_, err = rp.Generate(context.Background(), &Request{})
	}
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want *ErrRateLimit once the burst is spent", err)
	}
	if !IsTransient(err) {
		t.Error("local rate limit should be retryable by the gateway")
	}
	if err := rp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestResilientProvider_Generate_PassesErrorsThrough(t *testing.T) {
	p := &mockProvider{name: "test", err: &ErrProviderUnavailable{Err: errors.New("down")}}
	rp := NewResilientProvider(p, ResilientConfig{EnableCircuitBreaker: true, FailureThreshold: 10})

	_, err := rp.Generate(context.Background(), &Request{})
	if !IsTransient(err) {
		t.Errorf("Generate() error = %v, want transient provider error", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 (no retry inside the wrapper)", p.calls)
	}
}

// Provider HTTP tests

func newTestClaudeProvider(t *testing.T, handler http.HandlerFunc) *ClaudeProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &ClaudeProvider{client: &client, model: "claude-sonnet-4-20250514"}
}

func TestNewClaudeProvider_RequiresKey(t *testing.T) {
	if _, err := NewClaudeProvider(ClaudeConfig{}); err == nil {
		t.Error("NewClaudeProvider() without key should fail")
	}
}

func TestClaudeProvider_Generate_HTTPSuccess(t *testing.T) {
	p := newTestClaudeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Path = %v, want /v1/messages", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["max_tokens"] != float64(4096) {
			t.Errorf("max_tokens = %v, want 4096", body["max_tokens"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4-20250514",
			"content":     []map[string]any{{"type": "text", "text": `{"questions":[]}`}},
			"stop_reason": "max_tokens",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	})

	got, err := p.Generate(context.Background(), &Request{
		System:    "sys",
		Messages:  []Message{{Role: RoleUser, Content: "Hello"}},
		MaxTokens: 4096,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != `{"questions":[]}` {
		t.Errorf("Content = %v", got.Content)
	}
	if !got.Truncated() {
		t.Errorf("StopReason = %q, want max_tokens", got.StopReason)
	}
	if got.Usage.InputTokens != 10 {
		t.Errorf("InputTokens = %d, want 10", got.Usage.InputTokens)
	}
}

func TestClaudeProvider_Generate_Errors(t *testing.T) {
	tests := []struct {
		status    int
		errType   string
		transient bool
	}{
		{http.StatusTooManyRequests, "rate_limit_error", true},
		{http.StatusInternalServerError, "api_error", true},
		{http.StatusBadRequest, "invalid_request_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.errType, func(t *testing.T) {
			p := newTestClaudeProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"type":  "error",
					"error": map[string]any{"type": tt.errType, "message": "nope"},
				})
			})

			_, err := p.Generate(context.Background(), &Request{
				Messages:  []Message{{Role: RoleUser, Content: "x"}},
				MaxTokens: 10,
			})
			if err == nil {
				t.Fatal("Generate() expected error")
			}
			if IsTransient(err) != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, IsTransient(err), tt.transient)
			}
		})
	}
}

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOpenAIProvider_Generate_HTTPSuccess(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Path = %v, want /v1/chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %v", r.Header.Get("Authorization"))
		}

		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system then user", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Hello from OpenAI!"},
				"finish_reason": "length",
			}},
			"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
		})
	})

	got, err := p.Generate(context.Background(), &Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != "Hello from OpenAI!" {
		t.Errorf("Content = %v", got.Content)
	}
	if got.StopReason != StopMaxTokens {
		t.Errorf("StopReason = %q, want max_tokens", got.StopReason)
	}
}

func TestOpenAIProvider_Generate_HTTPError(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := p.Generate(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var un *ErrProviderUnavailable
	if !errors.As(err, &un) {
		t.Errorf("Generate() error = %T %v, want ErrProviderUnavailable", err, err)
	}
}

func TestMapOpenAIError(t *testing.T) {
	err := mapOpenAIError(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Errorf("mapOpenAIError(429) = %T, want ErrRateLimit", err)
	}
}

func TestMapGeminiError(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		err := mapGeminiError(&genai.APIError{Code: tt.code, Message: "x"})
		if IsTransient(err) != tt.transient {
			t.Errorf("mapGeminiError(%d) transient = %v, want %v", tt.code, IsTransient(err), tt.transient)
		}
	}
}

func TestBuildGeminiContents_SkipsSystem(t *testing.T) {
	got := buildGeminiContents([]Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleAssistant, Content: "a"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Role != "model" {
		t.Errorf("assistant role = %q, want model", got[1].Role)
	}
}

func TestNewOllamaProvider_Defaults(t *testing.T) {
	p := NewOllamaProvider(OllamaConfig{})
	if p.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %v", p.baseURL)
	}
	if p.Name() != "ollama" {
		t.Errorf("Name() = %v", p.Name())
	}
}

func TestOllamaProvider_BuildRequest(t *testing.T) {
	p := NewOllamaProvider(OllamaConfig{Model: "mistral"})
	got := p.buildRequest(&Request{
		System:      "sys",
		Messages:    []Message{{Role: RoleUser, Content: "u"}},
		MaxTokens:   100,
		Temperature: 0.5,
	})

	if got.Model != "mistral" {
		t.Errorf("Model = %v, want mistral", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("Messages = %+v", got.Messages)
	}
	if got.Stream {
		t.Error("Stream should be false")
	}
	if got.Format != "json" {
		t.Errorf("Format = %q, want json", got.Format)
	}
	if got.Options == nil || got.Options.NumPredict != 100 {
		t.Errorf("Options = %+v", got.Options)
	}
}

func TestOllamaProvider_Generate_HTTPSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Path = %v, want /api/chat", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3",
			"message":           map[string]any{"role": "assistant", "content": "Hello from Ollama!"},
			"done":              true,
			"done_reason":       "length",
			"eval_count":        5,
			"prompt_eval_count": 10,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	got, err := p.Generate(context.Background(), &Request{
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != "Hello from Ollama!" {
		t.Errorf("Content = %v", got.Content)
	}
	if !got.Truncated() {
		t.Error("done_reason length should report truncation")
	}
}

func TestOllamaProvider_Generate_HTTPError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": "model not loaded"}`))
			}))
			defer server.Close()

			p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
			_, err := p.Generate(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
			if err == nil {
				t.Fatal("Generate() expected error")
			}
			if !strings.Contains(err.Error(), fmt.Sprint(tt.status)) {
				t.Errorf("error should contain status code, got: %v", err)
			}
			if IsTransient(err) != tt.transient {
				t.Errorf("IsTransient = %v, want %v", IsTransient(err), tt.transient)
			}
		})
	}
}

func TestOllamaProvider_Generate_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	_, err := p.Generate(ctx, &Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err == nil {
		t.Fatal("Generate() expected error for cancelled context")
	}
	if IsTransient(err) {
		t.Errorf("cancelled request should not be retried: %v", err)
	}
}
