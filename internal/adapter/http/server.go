// Package http exposes the service's operational surface: health and
// readiness probes, Prometheus metrics, synchronous refresh triggers, and
// the per-stage staleness report.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-energy-pipeline/internal/pipeline"
)

// Refresher is the orchestration surface the server drives.
type Refresher interface {
	RunAll(ctx context.Context) (string, []pipeline.StageResult, error)
	RunStage(ctx context.Context, stage string) (string, []pipeline.StageResult, error)
	Staleness(ctx context.Context) ([]pipeline.StageStatus, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the pipeline over HTTP.
type Server struct {
	httpServer *http.Server
	refresher  Refresher
	logger     *slog.Logger
}

// NewServer creates an HTTP server with probe, metrics, refresh, and
// staleness routes.
func NewServer(addr string, refresher Refresher, logger *slog.Logger) *Server {
	s := &Server{refresher: refresher, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/refresh", s.handleRefreshAll).Methods(http.MethodPost)
	r.HandleFunc("/refresh/{stage}", s.handleRefreshStage).Methods(http.MethodPost)
	r.HandleFunc("/staleness", s.handleStaleness).Methods(http.MethodGet)

	handler := handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, r))

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 10 * time.Second,
		// Refresh is trigger-and-wait, so responses may take as long as a
		// full recompute. No write timeout; the client's context bounds it.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.refresher.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// refreshResponse is the body of a completed (or failed) refresh trigger.
type refreshResponse struct {
	RunID  string                 `json:"run_id"`
	Stages []pipeline.StageResult `json:"stages"`
	Error  string                 `json:"error,omitempty"`
}

func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	runID, results, err := s.refresher.RunAll(r.Context())
	s.writeRefreshResult(w, runID, results, err)
}

func (s *Server) handleRefreshStage(w http.ResponseWriter, r *http.Request) {
	stage := mux.Vars(r)["stage"]
	if !pipeline.ValidStage(stage) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown stage: " + stage,
		})
		return
	}
	runID, results, err := s.refresher.RunStage(r.Context(), stage)
	s.writeRefreshResult(w, runID, results, err)
}

// writeRefreshResult reports a refresh outcome. A failed run still lists the
// stages that completed before the failure; their tables were replaced and
// everything downstream is stale.
func (s *Server) writeRefreshResult(w http.ResponseWriter, runID string, results []pipeline.StageResult, err error) {
	resp := refreshResponse{RunID: runID, Stages: results}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStaleness(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.refresher.Staleness(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stages": statuses})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort status response
}
