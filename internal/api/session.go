package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sabia-ai/sabia/internal/log"
	"github.com/sabia-ai/sabia/internal/session"
)

// sessionHandler serves session CRUD endpoints.
type sessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// turnPayload is one history entry in API responses.
type turnPayload struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// create handles POST /api/v1/sessions.
func (h *sessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	sess := h.store.Create()

	WriteJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID.String(),
		"created_at": sess.CreatedAt,
	}, h.logger)
}

// list handles GET /api/v1/sessions.
func (h *sessionHandler) list(w http.ResponseWriter, _ *http.Request) {
	infos := h.store.Sessions()

	WriteJSON(w, http.StatusOK, map[string]any{
		"sessions": infos,
		"count":    len(infos),
	}, h.logger)
}

// history handles GET /api/v1/sessions/{id}/history.
func (h *sessionHandler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	turns, err := h.store.History(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", "session does not exist", h.logger)
			return
		}
		h.logger.Error("loading history", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "history_failed", "failed to load history", h.logger)
		return
	}

	payload := make([]turnPayload, len(turns))
	for i, turn := range turns {
		payload[i] = turnPayload{
			Role:      string(turn.Role),
			Content:   turn.Content,
			Timestamp: turn.CreatedAt,
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": id.String(),
		"history":    payload,
	}, h.logger)
}

// delete handles DELETE /api/v1/sessions/{id}.
func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", "session does not exist", h.logger)
			return
		}
		h.logger.Error("deleting session", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete session", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// parseID extracts and validates the {id} path segment.
func (h *sessionHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_session", "session id is not a valid UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
