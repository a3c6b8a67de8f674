package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/coursecal/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// loadSession resolves the caller's session. On failure it has already
// written a response.
func loadSession(w http.ResponseWriter, r *http.Request, sessions *session.Manager, logger *slog.Logger) (*session.Session, bool) {
	sess, err := sessions.Get(r.Context(), session.Token(r.Context()))
	if err != nil {
		logger.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return sess, true
}

func saveSession(sessions *session.Manager, sess *session.Session, logger *slog.Logger) {
	if err := sessions.Save(sess); err != nil {
		logger.Error("failed to save session", "error", err)
	}
}
