package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and attaches the connection to the
// session returned by sessionOf. Requests without a session are rejected.
func HandleWebSocket(hub *Hub, sessionOf func(*http.Request) string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionOf(r)
		if session == "" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, session).Run(r.Context())
	}
}
