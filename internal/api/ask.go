package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/sabia-ai/sabia/internal/agent"
	"github.com/sabia-ai/sabia/internal/chat"
	"github.com/sabia-ai/sabia/internal/log"
)

// maxAskBodyBytes bounds the request body to keep a hostile client from
// exhausting memory.
const maxAskBodyBytes = 1 << 20 // 1 MiB

// AskRequest is the POST /api/v1/ask request payload.
type AskRequest struct {
	Query     string         `json:"query"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// askHandler streams pipeline answers over SSE.
type askHandler struct {
	pipeline *chat.Pipeline
	logger   log.Logger
}

// stream handles POST /api/v1/ask.
//
// Validation failures are reported as regular JSON errors before the SSE
// stream opens. Once streaming has begun, a failure simply closes the
// connection without a turn_complete marker; the client treats the missing
// marker as an interrupted turn.
func (h *askHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON", h.logger)
		return
	}
	if req.Query == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "query is required", h.logger)
		return
	}
	if req.SessionID != "" {
		if _, err := uuid.Parse(req.SessionID); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_session", "session_id is not a valid UUID", h.logger)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "session_id", req.SessionID)

	headersSent := false
	callback := func(_ context.Context, event chat.Event) error {
		headersSent = true
		return writeEvent(w, flusher, event)
	}

	result, err := h.pipeline.Ask(ctx, chat.Request{
		Query:     req.Query,
		SessionID: req.SessionID,
		Metadata:  req.Metadata,
	}, callback)
	if err != nil {
		h.handleStreamError(w, req.SessionID, headersSent, err)
		return
	}

	h.logger.Info("SSE stream completed",
		"session_id", result.SessionID,
		"fragments", result.Fragments,
	)
}

// handleStreamError reports an Ask failure. Before any event went out the
// handler can still produce a proper HTTP status; afterwards the only honest
// signal is closing the stream without a terminal marker.
func (h *askHandler) handleStreamError(w http.ResponseWriter, sessionID string, headersSent bool, err error) {
	if headersSent {
		h.logger.Warn("SSE stream aborted", "session_id", sessionID, "error", err)
		return
	}

	switch {
	case errors.Is(err, chat.ErrEmptyQuery):
		WriteError(w, http.StatusBadRequest, "missing_query", "query is required", h.logger)
	case errors.Is(err, chat.ErrInvalidSession):
		WriteError(w, http.StatusBadRequest, "invalid_session", "session_id is not a valid UUID", h.logger)
	case errors.Is(err, agent.ErrUnavailable):
		h.logger.Error("model unavailable", "session_id", sessionID, "error", err)
		WriteError(w, http.StatusServiceUnavailable, "model_unavailable", "the model could not serve the request", h.logger)
	case errors.Is(err, chat.ErrStreamInterrupted):
		h.logger.Info("client disconnected", "session_id", sessionID)
	default:
		h.logger.Error("ask failed", "session_id", sessionID, "error", err)
		WriteError(w, http.StatusInternalServerError, "ask_failed", "failed to process query", h.logger)
	}
}

// writeEvent writes a single SSE event as a bare data line.
// SSE format: "data: <json>\n\n"
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event chat.Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
