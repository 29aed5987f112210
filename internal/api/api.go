// Package api implements the prlens HTTP API server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sprite-ai/prlens/internal/config"
	"github.com/sprite-ai/prlens/internal/jobs"
	"github.com/sprite-ai/prlens/internal/pipeline"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 16 << 20

// Server is the prlens HTTP API server.
type Server struct {
	addr   string
	mux    *http.ServeMux
	server *http.Server

	cfg   *config.Config
	opts  []pipeline.Option
	orch  *pipeline.Orchestrator
	queue   *jobs.Queue
	metrics *metrics
	stop    context.CancelFunc
	log     zerolog.Logger
}

// New creates a server and starts its job workers. Opts configure every
// orchestrator the server builds.
func New(cfg *config.Config, logger zerolog.Logger, opts ...pipeline.Option) *Server {
	m := newMetrics()
	opts = append([]pipeline.Option{pipeline.WithObserver(m.observe)}, opts...)
	s := &Server{
		addr:    cfg.Server.Address(),
		cfg:     cfg,
		opts:    opts,
		orch:    pipeline.New(cfg, logger, opts...),
		metrics: m,
		log:     logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.queue = jobs.New(s.orch, cfg.Jobs, logger)
	s.queue.Start(ctx)

	s.mux = http.NewServeMux()
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/parse", s.handleParse)
	s.mux.HandleFunc("POST /api/jobs", s.handleSubmitJob)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleJobStatus)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	s.mux.Handle("GET /metrics", s.metrics.handler())
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("prlens API server listening")
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the job workers after queued jobs finish.
func (s *Server) Close() {
	s.queue.Close()
	s.stop()
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("json encode")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
