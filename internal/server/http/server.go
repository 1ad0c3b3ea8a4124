// Package httpserver provides the HTTP REST API server for the paper
// recommendation service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nexusresearch/paper-recommendation-service/internal/database"
	"github.com/nexusresearch/paper-recommendation-service/internal/observability"
	"github.com/nexusresearch/paper-recommendation-service/internal/papersources"
	"github.com/nexusresearch/paper-recommendation-service/internal/pipeline"
	"github.com/nexusresearch/paper-recommendation-service/internal/repository"
)

// Pipeline is the subset of the ranking pipeline the handlers call.
type Pipeline interface {
	Similar(ctx context.Context, paperID string) (*pipeline.SimilarityResult, error)
	Recommend(ctx context.Context, limit int) (*pipeline.RecommendationResult, error)
}

// HealthReporter reports database pool health for the health endpoints.
// *database.DB satisfies this interface.
type HealthReporter interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	pipeline   Pipeline
	paperRepo  repository.PaperRepository
	searcher   papersources.Searcher
	db         HealthReporter
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	pipe Pipeline,
	paperRepo repository.PaperRepository,
	searcher papersources.Searcher,
	db HealthReporter,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		pipeline:  pipe,
		paperRepo: paperRepo,
		searcher:  searcher,
		db:        db,
		metrics:   metrics,
		logger:    logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/similarity", s.similarity)
		r.Post("/recommendations", s.recommendations)
		r.Get("/search", s.searchPapers)

		r.Route("/papers", func(r chi.Router) {
			r.Get("/", s.listPapers)
			r.Post("/", s.createPaper)
			r.Get("/{paperID}", s.getPaper)
			r.Delete("/{paperID}", s.deletePaper)
			r.Patch("/{paperID}/read", s.setPaperRead)
		})
	})

	return r
}

// Handler returns the server's HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
