package store

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/blake2b"

	"github.com/dukerupert/coursecal/internal/model"
)

// SessionStore persists session snapshots. Tokens are never stored; rows are
// keyed by a BLAKE2b hash of the token.
type SessionStore struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewSessionStore returns a store that loads entry times in loc.
func NewSessionStore(db *sql.DB, loc *time.Location) *SessionStore {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionStore{db: sqlx.NewDb(db, "sqlite"), loc: loc}
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Save replaces the stored snapshot for snap.Token.
func (s *SessionStore) Save(snap model.SessionSnapshot) error {
	if snap.Token == "" {
		return fmt.Errorf("save session: empty token")
	}
	key := hashToken(snap.Token)

	palette, err := json.Marshal(snap.Palette)
	if err != nil {
		return fmt.Errorf("marshal palette: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	_, err = tx.Exec(
		`INSERT INTO sessions (token_hash, next_entry_id, palette, palette_used, created_unix, updated_unix)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(token_hash) DO UPDATE SET
		   next_entry_id = excluded.next_entry_id,
		   palette = excluded.palette,
		   palette_used = excluded.palette_used,
		   updated_unix = excluded.updated_unix`,
		key, snap.NextEntryID, string(palette), snap.PaletteUsed, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM display_entries WHERE session_hash = ?`, key); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	for _, e := range snap.Entries {
		_, err := tx.Exec(
			`INSERT INTO display_entries (session_hash, entry_id, title, location, bg_color, border_color, start_unix, end_unix)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			key, e.ID, e.Title, e.Location, e.BgColor, e.BorderColor, e.Start.Unix(), e.End.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert entry %d: %w", e.ID, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM selected_courses WHERE session_hash = ?`, key); err != nil {
		return fmt.Errorf("delete selections: %w", err)
	}
	for i, c := range snap.Selected {
		sections, err := json.Marshal(c.Sections)
		if err != nil {
			return fmt.Errorf("marshal sections: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO selected_courses (session_hash, position, course_id, name, sections) VALUES (?, ?, ?, ?, ?)`,
			key, i, c.ID, c.Name, string(sections),
		)
		if err != nil {
			return fmt.Errorf("insert selection %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sessionRow struct {
	NextEntryID int64  `db:"next_entry_id"`
	Palette     string `db:"palette"`
	PaletteUsed int    `db:"palette_used"`
	UpdatedUnix int64  `db:"updated_unix"`
}

type entryRow struct {
	EntryID     int64  `db:"entry_id"`
	Title       string `db:"title"`
	Location    string `db:"location"`
	BgColor     string `db:"bg_color"`
	BorderColor string `db:"border_color"`
	StartUnix   int64  `db:"start_unix"`
	EndUnix     int64  `db:"end_unix"`
}

type selectionRow struct {
	CourseID string `db:"course_id"`
	Name     string `db:"name"`
	Sections string `db:"sections"`
}

// Load returns the snapshot for token, or nil if none is stored.
func (s *SessionStore) Load(token string) (*model.SessionSnapshot, error) {
	key := hashToken(token)

	var row sessionRow
	err := s.db.Get(&row,
		`SELECT next_entry_id, palette, palette_used, updated_unix FROM sessions WHERE token_hash = ?`, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	snap := model.SessionSnapshot{
		Token:       token,
		NextEntryID: row.NextEntryID,
		PaletteUsed: row.PaletteUsed,
		UpdatedAt:   time.Unix(row.UpdatedUnix, 0),
	}
	if err := json.Unmarshal([]byte(row.Palette), &snap.Palette); err != nil {
		return nil, fmt.Errorf("decode palette: %w", err)
	}

	if snap.Entries, err = s.entries(key); err != nil {
		return nil, err
	}
	if snap.Selected, err = s.selections(key); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SessionStore) entries(key string) ([]model.DisplayEntry, error) {
	var rows []entryRow
	err := s.db.Select(&rows,
		`SELECT entry_id, title, location, bg_color, border_color, start_unix, end_unix
		 FROM display_entries WHERE session_hash = ? ORDER BY entry_id`, key,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	entries := make([]model.DisplayEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.DisplayEntry{
			ID:          r.EntryID,
			CalendarID:  model.EntryCalendarID,
			Category:    model.EntryCategory,
			Title:       r.Title,
			Location:    r.Location,
			Color:       model.EntryTextColor,
			BgColor:     r.BgColor,
			BorderColor: r.BorderColor,
			Start:       time.Unix(r.StartUnix, 0).In(s.loc),
			End:         time.Unix(r.EndUnix, 0).In(s.loc),
			IsReadOnly:  true,
		})
	}
	return entries, nil
}

func (s *SessionStore) selections(key string) ([]model.SelectedCourse, error) {
	var rows []selectionRow
	err := s.db.Select(&rows,
		`SELECT course_id, name, sections FROM selected_courses WHERE session_hash = ? ORDER BY position`, key,
	)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}

	selected := make([]model.SelectedCourse, 0, len(rows))
	for _, r := range rows {
		c := model.SelectedCourse{ID: r.CourseID, Name: r.Name}
		if err := json.Unmarshal([]byte(r.Sections), &c.Sections); err != nil {
			return nil, fmt.Errorf("decode sections for %s: %w", r.CourseID, err)
		}
		selected = append(selected, c)
	}
	return selected, nil
}

func (s *SessionStore) Delete(token string) error {
	if _, err := s.deleteWhere(`token_hash = ?`, hashToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteStale removes sessions not saved since before. It returns the number
// of sessions removed.
func (s *SessionStore) DeleteStale(before time.Time) (int64, error) {
	n, err := s.deleteWhere(`updated_unix < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return n, nil
}

// deleteWhere removes matching sessions and their rows. Child rows are deleted
// explicitly so cleanup does not depend on foreign key enforcement.
func (s *SessionStore) deleteWhere(cond string, arg any) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, child := range []string{"display_entries", "selected_courses"} {
		q := `DELETE FROM ` + child + ` WHERE session_hash IN (SELECT token_hash FROM sessions WHERE ` + cond + `)`
		if _, err := tx.Exec(q, arg); err != nil {
			return 0, err
		}
	}
	result, err := tx.Exec(`DELETE FROM sessions WHERE `+cond, arg)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}
