package session

import (
	"github.com/dukerupert/coursecal/internal/model"
	ws "github.com/dukerupert/coursecal/internal/websocket"
)

// hubSink pushes one session's calendar changes to its browsers.
type hubSink struct {
	hub   *ws.Hub
	token string
}

func (s hubSink) EntriesCreated(entries []model.DisplayEntry) {
	for _, e := range entries {
		s.hub.Send(s.token, ws.NewMessage("calendar_entry", "created", e.ID, map[string]any{
			"entry": e,
		}))
	}
}

func (s hubSink) Cleared() {
	s.hub.Send(s.token, ws.NewMessage("calendar", "cleared", 0, nil))
}
