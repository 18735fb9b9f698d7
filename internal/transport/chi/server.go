// Package chi serves the tagger's status endpoints: health, run progress and
// Prometheus metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/metrics"
	healthuc "github.com/kailas-cloud/doctagger/internal/usecase/health"
	runuc "github.com/kailas-cloud/doctagger/internal/usecase/run"
	"github.com/kailas-cloud/doctagger/internal/version"
)

const shutdownTimeout = 5 * time.Second

// HealthChecker reports backend health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// ProgressReader exposes live run counters.
type ProgressReader interface {
	Snapshot() runuc.Snapshot
}

// Server is the status HTTP server.
type Server struct {
	health   HealthChecker
	progress ProgressReader
	apiKeys  []string
	logger   *zap.Logger
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version string         `json:"version"`
	Commit  string         `json:"commit"`
	Run     runuc.Snapshot `json:"run"`
}

// NewServer creates a status server. apiKeys protects /status; empty disables auth.
func NewServer(health HealthChecker, progress ProgressReader, apiKeys []string, logger *zap.Logger) *Server {
	return &Server{health: health, progress: progress, apiKeys: apiKeys, logger: logger}
}

// Router builds the chi router with all middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.Health)
	r.Get("/status", s.Status)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Version: version.Version,
		Commit:  version.Commit,
		Run:     s.progress.Snapshot(),
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting status server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	s.logger.Info("Status server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
