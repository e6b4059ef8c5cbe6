package daemon

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/config"
	"github.com/felixgeelhaar/ailevels/internal/llm"
	"github.com/felixgeelhaar/ailevels/internal/storage/memory"
)

func TestClientLimiter_Burst(t *testing.T) {
	l := newClientLimiter(60, 3)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.allow("a") {
		t.Error("4th request should be denied")
	}
	if !l.allow("b") {
		t.Error("other clients have their own bucket")
	}

	// 60/min refills one token per second
	now = now.Add(time.Second)
	if !l.allow("a") {
		t.Error("request after refill should be allowed")
	}
}

func TestClientLimiter_DropsStaleClients(t *testing.T) {
	l := newClientLimiter(60, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("old")
	now = now.Add(staleAfter + time.Minute)
	l.allow("new")

	if _, ok := l.clients["old"]; ok {
		t.Error("stale client was not dropped")
	}
	if len(l.clients) != 1 {
		t.Errorf("clients = %d, want 1", len(l.clients))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.1.1.1:80", "10.0.0.9"},
		{"remote host", nil, "192.168.1.5:5555", "192.168.1.5"},
		{"remote without port", nil, "pipe", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServer_ModelRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := llm.NewMockProvider()
	gateway := llm.NewGateway(mock, llm.GatewayConfig{Sleep: func(time.Duration) {}, Logger: logger})
	svc := assessment.NewService(gateway, memory.NewStore(),
		assessment.NewThresholdResolver(assessment.MapSource{}, logger), assessment.WithLogger(logger))

	cfg := config.DefaultLocalConfig()
	cfg.Daemon.ModelRequestsPerMinute = 1
	cfg.Daemon.ModelRequestBurst = 1
	srv := NewServer(ServerConfig{Config: cfg, Service: svc, Provider: "mock", Logger: logger})

	do := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		return rec
	}

	// an invalid body still spends the token
	if rec := do("/lv1/generate"); rec.Code != http.StatusBadRequest {
		t.Fatalf("first status = %d, want 400", rec.Code)
	}
	rec := do("/lv1/grade")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// complete makes no model call and is not limited
	if rec := do("/lv1/complete"); rec.Code == http.StatusTooManyRequests {
		t.Error("complete should not be rate limited")
	}
}
