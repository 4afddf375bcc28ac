// Package server provides the deployment history HTTP server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	deploymentsDomain "github.com/pendergraft/deployctl/internal/deployments/domain"
	deploymentsTransport "github.com/pendergraft/deployctl/internal/deployments/transport"
	"github.com/pendergraft/deployctl/internal/middleware/logging"
	"github.com/pendergraft/deployctl/internal/middleware/ratelimit"
	"github.com/pendergraft/deployctl/internal/observability/metrics"
	"github.com/pendergraft/deployctl/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// Server is the read-only deployment history API
type Server struct {
	logger  *slog.Logger
	router  *chi.Mux
	limiter *ratelimit.Limiter

	deploymentsSvc deploymentsTransport.Service
}

// Option configures a Server
type Option func(*Server)

// WithRateLimit limits API requests per client.
func WithRateLimit(l *ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// New creates a new server
func New(store storage.DeploymentStore, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		logger:         logger,
		router:         chi.NewRouter(),
		deploymentsSvc: deploymentsDomain.NewService(store),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("history API listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware)
	}
	s.router.Use(middleware.Compress(5))

	// CORS, read-only
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	deploymentsHandler := deploymentsTransport.NewHandler(s.deploymentsSvc)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/deployments", deploymentsHandler.RegisterReadRoutes)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
