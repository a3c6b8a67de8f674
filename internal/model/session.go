package model

import "time"

// SelectedCourse is a course the user picked, kept with its display name so
// a restored session can render it without refetching the catalog.
type SelectedCourse struct {
	ID       string   `json:"course_id"`
	Name     string   `json:"name"`
	Sections []string `json:"sections,omitempty"`
}

// SessionSnapshot is the persisted state of one browser session.
type SessionSnapshot struct {
	Token       string           `json:"-"`
	NextEntryID int64            `json:"next_entry_id"`
	Palette     []string         `json:"palette"`
	PaletteUsed int              `json:"palette_used"`
	Entries     []DisplayEntry   `json:"entries"`
	Selected    []SelectedCourse `json:"selected"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type Alert struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}
