package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/config"
)

// Version is reported by /health.
var Version = "dev"

// Server represents the levels daemon HTTP server
type Server struct {
	service  *assessment.Service
	provider string
	router   chi.Router
	server   *http.Server
	logger   *slog.Logger
	msgs     messages

	modelRPM   int
	modelBurst int
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config   *config.LocalConfig
	Service  *assessment.Service
	Provider string // name of the LLM provider behind Service, for /health
	Logger   *slog.Logger
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service:  cfg.Service,
		provider: cfg.Provider,
		router:   chi.NewRouter(),
		logger:   logger,
		msgs:     messagesFor(cfg.Config.Daemon.Locale),

		modelRPM:   cfg.Config.Daemon.ModelRequestsPerMinute,
		modelBurst: cfg.Config.Daemon.ModelRequestBurst,
	}

	origins := cfg.Config.Daemon.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(
		correlationIDMiddleware,
		loggingMiddleware(logger),
		recoveryMiddleware(logger, s.msgs),
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", CorrelationIDHeader},
			ExposedHeaders: []string{CorrelationIDHeader},
			MaxAge:         300,
		}),
	)
	if len(origins) == 1 && origins[0] == "*" {
		// cors only answers requests that send Origin; callers expect the
		// header on every response.
		s.router.Use(allowAnyOrigin)
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // grading makes two model calls
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/levels/status", s.handleStatus)
	s.router.Get("/levels/thresholds", s.handleThresholds)

	s.router.Group(func(r chi.Router) {
		r.Use(modelRateLimit(s.modelRPM, s.modelBurst, s.logger, s.msgs))
		r.Post("/lv{n:[0-9]+}/generate", s.handleGenerate)
		r.Post("/lv{n:[0-9]+}/grade", s.handleGrade)
	})
	s.router.Post("/lv{n:[0-9]+}/complete", s.handleComplete)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: s.msgs.notFound})
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting levels daemon", "addr", s.server.Addr, "llm_provider", s.provider)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")
	return s.server.Shutdown(ctx)
}
