// Package api exposes the turn engine over HTTP: a streaming chat
// endpoint (SSE) plus session listing and history retrieval.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/golfguiders/caddie/internal/orchestrator"
)

// ServerConfig assembles the API server.
type ServerConfig struct {
	Orchestrator *orchestrator.Orchestrator // required
	Sessions     SessionDirectory           // required
	Pool         *pgxpool.Pool              // optional, enables DB readiness
	StreamBuffer int                        // SSE event buffer per turn
	Logger       *slog.Logger
}

// Server is the HTTP server for the chat API.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires routes and middleware.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session directory is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{
		orch:         cfg.Orchestrator,
		streamBuffer: cfg.StreamBuffer,
		logger:       logger,
	}
	sh := &sessionHandler{store: cfg.Sessions, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.stream)
	mux.HandleFunc("GET /api/v1/sessions", sh.list)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", sh.messages)

	// Outermost first: Recovery -> RequestID -> Logging -> Routes.
	// RequestID sits before Logging so request_id shows in log lines.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
