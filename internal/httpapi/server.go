// Package httpapi exposes the embedding pipeline over HTTP for long-lived
// deployments, where per-invocation model loading would dominate latency.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/config"
	"github.com/ocr-provenance/workers/internal/embed"
	"github.com/ocr-provenance/workers/internal/logger"
	"github.com/ocr-provenance/workers/internal/metrics"
)

// EmbedRequest is the body of POST /v1/embed.
type EmbedRequest struct {
	Chunks    []string `json:"chunks"`
	BatchSize int      `json:"batch_size,omitempty"`
	Device    string   `json:"device,omitempty"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query  string `json:"query"`
	Device string `json:"device,omitempty"`
}

// Pipeline is the embedding collaborator the server needs.
type Pipeline interface {
	Generate(ctx context.Context, chunks []string, batchSize int, device string) embed.EmbeddingResult
	GenerateQuery(ctx context.Context, query string, device string) embed.QueryEmbeddingResult
}

// Server serves the embedding API.
type Server struct {
	pipeline Pipeline
	logger   *zap.Logger
}

// NewServer creates the embedding API server.
func NewServer(pipeline Pipeline, logger *zap.Logger) *Server {
	return &Server{pipeline: pipeline, logger: logger}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())

	r.Post("/v1/embed", s.handleEmbed)
	r.Post("/v1/query", s.handleQuery)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// requestLogger stores a request-scoped logger carrying the chi request id,
// so handlers log with request correlation without threading it explicitly.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.logger.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(logger.ContextWithLogger(r.Context(), l)))
	})
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res := s.pipeline.Generate(r.Context(), req.Chunks, req.BatchSize, req.Device)
	status := http.StatusOK
	if !res.Success {
		// The pipeline is fail-soft; surface the failure in the status too.
		status = http.StatusInternalServerError
		logger.FromContext(r.Context()).Warn("Embedding request failed",
			zap.Int("chunks", len(req.Chunks)),
			zap.Stringp("error", res.Error))
	}
	writeJSON(w, status, res)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	res := s.pipeline.GenerateQuery(r.Context(), req.Query, req.Device)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
		logger.FromContext(r.Context()).Warn("Query embedding request failed",
			zap.Stringp("error", res.Error))
	}
	writeJSON(w, status, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(cfg config.HTTPConfig) error {
	metrics.Register()
	metrics.RegisterHTTP()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		s.logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}
