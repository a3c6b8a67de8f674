package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/coursecal/internal/model"
	"github.com/dukerupert/coursecal/internal/selector"
	"github.com/dukerupert/coursecal/internal/session"
)

type SelectorHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewSelectorHandler(sessions *session.Manager, logger *slog.Logger) *SelectorHandler {
	return &SelectorHandler{sessions: sessions, logger: logger}
}

type selectorState struct {
	Departments selector.Dropdown `json:"departments"`
	Courses     selector.Dropdown `json:"courses"`
	Selected    []selector.Item   `json:"selected"`
	Alerts      []model.Alert     `json:"alerts"`
}

func stateOf(s *selector.Selector) selectorState {
	st := selectorState{
		Departments: s.Departments(),
		Courses:     s.CourseOptions(),
		Selected:    s.Items(),
		Alerts:      s.Alerts(),
	}
	if st.Selected == nil {
		st.Selected = []selector.Item{}
	}
	if st.Alerts == nil {
		st.Alerts = []model.Alert{}
	}
	return st
}

func (h *SelectorHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Selector))
}

// RefreshDepartments reloads the department dropdown from the catalog.
func (h *SelectorHandler) RefreshDepartments(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := sess.Selector.GetDepartmentOptions(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, stateOf(sess.Selector))
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Selector))
}

type selectRequest struct {
	DeptID   string `json:"dept_id"`
	CourseID string `json:"course_id"`
}

func decodeSelect(w http.ResponseWriter, r *http.Request) (selectRequest, bool) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	req.DeptID = strings.TrimSpace(req.DeptID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	return req, true
}

// SelectDepartment picks a department and loads its courses.
func (h *SelectorHandler) SelectDepartment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelect(w, r)
	if !ok {
		return
	}
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := sess.Selector.SelectDepartment(req.DeptID); err != nil {
		writeError(w, http.StatusBadRequest, "unknown department")
		return
	}
	if err := sess.Selector.GetCourseOptions(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, stateOf(sess.Selector))
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Selector))
}

func (h *SelectorHandler) SelectCourse(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelect(w, r)
	if !ok {
		return
	}
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := sess.Selector.SelectCourse(req.CourseID); err != nil {
		writeError(w, http.StatusBadRequest, "unknown course")
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Selector))
}

// AddSelected appends the current course to the selection list. Adding a
// course twice is not an error.
func (h *SelectorHandler) AddSelected(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	status := http.StatusOK
	if _, added := sess.Selector.AddToSelected(); added {
		status = http.StatusCreated
		saveSession(h.sessions, sess, h.logger)
	}
	writeJSON(w, status, stateOf(sess.Selector))
}

func (h *SelectorHandler) RemoveSelected(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	if sess.Selector.RemoveSelected(r.PathValue("course_id")) {
		saveSession(h.sessions, sess, h.logger)
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Selector))
}

func (h *SelectorHandler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := sess.Selector.DismissAlert(i); err != nil {
		if errors.Is(err, selector.ErrNoAlert) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to dismiss alert")
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Selector))
}
