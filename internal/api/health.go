package api

import (
	"net/http"

	"github.com/sabia-ai/sabia/internal/log"
	"github.com/sabia-ai/sabia/internal/session"
)

// health is a simple health check endpoint for Docker/Kubernetes probes.
// Returns 200 OK with {"status":"ok"}.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness reports whether the server can take traffic, with session store
// occupancy for operators.
func readiness(store *session.Store, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "ready",
			"sessions": store.Len(),
		}, logger)
	}
}
