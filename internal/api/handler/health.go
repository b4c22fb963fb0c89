package handler

import (
	"net/http"

	"github.com/tlxsante/assistant/internal/api/response"
	"github.com/tlxsante/assistant/internal/kb"
	"github.com/tlxsante/assistant/internal/session"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck reports readiness: the service answers chat only once the
// knowledge index holds at least one entry.
func ReadyCheck(index *kb.Index, store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := index.Status()
		if st.EntryCount == 0 {
			response.Error(w, http.StatusServiceUnavailable, "knowledge base not loaded")
			return
		}
		response.OK(w, map[string]any{
			"status":   "ready",
			"entries":  st.EntryCount,
			"sessions": store.Len(),
		})
	}
}
