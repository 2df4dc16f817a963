package api

import (
	"errors"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/sabia-ai/sabia/internal/chat"
	"github.com/sabia-ai/sabia/internal/log"
	"github.com/sabia-ai/sabia/internal/session"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Pipeline    *chat.Pipeline // Required
	AskFlow     *chat.Flow     // Optional: nil disables POST /api/v1/ask/sync
	Store       *session.Store // Required
	CORSOrigins []string       // Allowed origins for CORS ("*" allows any)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ah := &askHandler{pipeline: cfg.Pipeline, logger: logger}
	sh := &sessionHandler{store: cfg.Store, logger: logger}

	mux := http.NewServeMux()

	// Ask
	mux.HandleFunc("POST /api/v1/ask", ah.stream)
	if cfg.AskFlow != nil {
		mux.Handle("POST /api/v1/ask/sync", genkit.Handler(cfg.AskFlow))
	}

	// Session CRUD
	mux.HandleFunc("POST /api/v1/sessions", sh.create)
	mux.HandleFunc("GET /api/v1/sessions", sh.list)
	mux.HandleFunc("GET /api/v1/sessions/{id}/history", sh.history)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.delete)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Use a top-level mux to separate health probes from the middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Store, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
