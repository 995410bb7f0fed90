// Package statusapi exposes a minimal read-only HTTP surface over the
// engine's snapshot: a liveness probe and a status document. Trimmed from
// teacher internal/api/server.go — no websocket hub, no dashboard event
// stream, no static file serving, since SPEC_FULL.md calls for an operator
// health/status endpoint, not a live dashboard.
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gridbot/internal/engine"
)

// SnapshotProvider is satisfied by *engine.Engine.
type SnapshotProvider interface {
	Snapshot() engine.Snapshot
}

// Server runs the status HTTP endpoint.
type Server struct {
	provider SnapshotProvider
	server   *http.Server
	logger   *slog.Logger
}

// NewServer builds a Server listening on port. Call Start to serve.
func NewServer(port int, provider SnapshotProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		provider: provider,
		logger:   logger.With("component", "statusapi"),
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("status server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down within a 10s deadline.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.provider.Snapshot()); err != nil {
		s.logger.Error("encode status snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
