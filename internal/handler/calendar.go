package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/coursecal/internal/export"
	"github.com/dukerupert/coursecal/internal/model"
	"github.com/dukerupert/coursecal/internal/schedule"
	"github.com/dukerupert/coursecal/internal/session"
)

type CalendarHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewCalendarHandler(sessions *session.Manager, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{sessions: sessions, logger: logger}
}

type calendarState struct {
	View    model.CalendarView   `json:"view"`
	Entries []model.DisplayEntry `json:"entries"`
}

func calendarOf(sess *session.Session) calendarState {
	entries := sess.Painter.Entries()
	if entries == nil {
		entries = []model.DisplayEntry{}
	}
	return calendarState{View: sess.Painter.View(), Entries: entries}
}

// isMeetingError reports whether err comes from catalog data that could not
// be placed on the calendar.
func isMeetingError(err error) bool {
	return errors.Is(err, schedule.ErrInvalidTime) ||
		errors.Is(err, schedule.ErrUnknownDay) ||
		errors.Is(err, schedule.ErrInvalidRange)
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, calendarOf(sess))
}

type addCourseRequest struct {
	CourseID  string `json:"course_id"`
	SectionID string `json:"section_id"`
}

// AddCourse paints one section of a known course. Without a section id the
// course's first section is used.
func (h *CalendarHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	var req addCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.SectionID = strings.TrimSpace(req.SectionID)

	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	course, known := sess.Selector.Course(req.CourseID)
	if !known {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if req.SectionID == "" && len(course.Sections) > 0 {
		req.SectionID = course.Sections[0]
	}

	created, err := sess.Painter.AddCourse(r.Context(), &course, req.SectionID)
	if err != nil {
		if isMeetingError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("failed to add course", "course", course.ID, "section", req.SectionID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch section")
		return
	}
	if len(created) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []model.DisplayEntry{}})
		return
	}

	saveSession(h.sessions, sess, h.logger)
	writeJSON(w, http.StatusCreated, map[string]any{"entries": created})
}

type generateFailure struct {
	CourseID string `json:"course_id"`
	Error    string `json:"error"`
}

// Generate clears the calendar and paints the first section of every
// selected course. A course that fails is reported and skipped.
func (h *CalendarHandler) Generate(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	sess.Painter.Clear()
	failures := []generateFailure{}
	for _, id := range sess.Selector.Selected() {
		course, known := sess.Selector.Course(id)
		if !known {
			continue
		}
		var sectionID string
		if len(course.Sections) > 0 {
			sectionID = course.Sections[0]
		}
		if _, err := sess.Painter.AddCourse(r.Context(), &course, sectionID); err != nil {
			h.logger.Warn("failed to paint course", "course", id, "error", err)
			failures = append(failures, generateFailure{CourseID: id, Error: err.Error()})
		}
	}

	saveSession(h.sessions, sess, h.logger)
	state := calendarOf(sess)
	writeJSON(w, http.StatusOK, map[string]any{
		"view":     state.View,
		"entries":  state.Entries,
		"failures": failures,
	})
}

func (h *CalendarHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	sess.Painter.Clear()
	saveSession(h.sessions, sess, h.logger)
	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the calendar as CSV.
func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.csv"`)
	if err := export.WriteCSV(w, sess.Painter.Entries()); err != nil {
		h.logger.Error("failed to export calendar", "error", err)
	}
}
