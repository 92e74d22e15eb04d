// Package http exposes the platform over a REST and websocket gateway. The
// gateway stays thin: request shaping and status codes live here, all
// domain semantics live in the core packages.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gapilongo/OPiN/broker"
	"github.com/gapilongo/OPiN/config"
	"github.com/gapilongo/OPiN/health"
	"github.com/gapilongo/OPiN/notify"
	"github.com/gapilongo/OPiN/pipeline"
	"github.com/gapilongo/OPiN/storage"
	"github.com/gapilongo/OPiN/subscription"
)

// Server is the HTTP gateway.
type Server struct {
	cfg        config.ServerConfig
	pipeline   *pipeline.Pipeline
	store      storage.Store
	provider   *subscription.Provider
	dispatcher *notify.Dispatcher
	broker     *broker.Broker
	monitor    *health.Monitor
	metrics    http.Handler
	logger     *slog.Logger

	httpServer *http.Server
}

// Deps collects the gateway's collaborators. Metrics may be nil to disable
// the endpoint.
type Deps struct {
	Pipeline   *pipeline.Pipeline
	Store      storage.Store
	Provider   *subscription.Provider
	Dispatcher *notify.Dispatcher
	Broker     *broker.Broker
	Monitor    *health.Monitor
	Metrics    http.Handler
}

// NewServer wires the router.
func NewServer(cfg config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:        cfg,
		pipeline:   deps.Pipeline,
		store:      deps.Store,
		provider:   deps.Provider,
		dispatcher: deps.Dispatcher,
		broker:     deps.Broker,
		monitor:    deps.Monitor,
		metrics:    deps.Metrics,
		logger:     logger.With("component", "gateway"),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/data", func(r chi.Router) {
			r.Post("/points", s.handleCreatePoint)
			r.Post("/batch", s.handleCreateBatch)
			r.Post("/query", s.handleQuery)
		})
		r.Get("/analytics/overview", s.handleAnalyticsOverview)
		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", s.handleCreateSubscription)
			r.Get("/", s.handleListSubscriptions)
			r.Delete("/{id}", s.handleDeactivateSubscription)
		})
	})

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/ws/{client_id}", s.handleWebsocket)
	return r
}

// Start begins serving. It blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", "address", s.cfg.Address())
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("gateway shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
