package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukerupert/coursecal/internal/model"
)

const (
	departmentPlaceholder = "Select a Department"
	coursePlaceholder     = "Select a Course"

	alertMessage = "An error occurred"
	alertLevel   = "danger"
)

var (
	ErrNoSelection   = errors.New("nothing selected")
	ErrUnknownOption = errors.New("unknown option")
	ErrNoAlert       = errors.New("no such alert")
)

// Catalog is the part of the course catalog the selector reads.
type Catalog interface {
	Departments(ctx context.Context) ([]model.Department, error)
	Courses(ctx context.Context, deptID string) ([]model.Course, error)
}

type Option struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Dropdown is a select list. Selected is empty while the placeholder is
// shown.
type Dropdown struct {
	Options  []Option `json:"options"`
	Selected string   `json:"selected"`
}

func (d Dropdown) has(value string) bool {
	for _, o := range d.Options {
		if !o.Placeholder && o.Value == value {
			return true
		}
	}
	return false
}

func newDropdown(placeholder string, n int) Dropdown {
	opts := make([]Option, 0, n+1)
	opts = append(opts, Option{Label: placeholder, Placeholder: true})
	return Dropdown{Options: opts}
}

// Item is a rendered entry in the selected-courses list.
type Item struct {
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
}

// Selector tracks one session's department and course pickers and the list
// of courses the user has selected.
type Selector struct {
	catalog Catalog
	logger  *slog.Logger

	mu          sync.Mutex
	departments Dropdown
	courses     Dropdown
	known       []string
	info        map[string]model.Course
	selected    []string
	items       []Item
	alerts      []model.Alert
}

func New(catalog Catalog, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		catalog: catalog,
		logger:  logger,
		info:    make(map[string]model.Course),
	}
}

// GetDepartmentOptions refills the department dropdown from the catalog. On
// failure an alert is raised and the dropdown is left as it was.
func (s *Selector) GetDepartmentOptions(ctx context.Context) error {
	depts, err := s.catalog.Departments(ctx)
	if err != nil {
		s.raise(err)
		return fmt.Errorf("get department options: %w", err)
	}

	dd := newDropdown(departmentPlaceholder, len(depts))
	for _, d := range depts {
		dd.Options = append(dd.Options, Option{Label: d.ID, Value: d.ID})
	}

	s.mu.Lock()
	s.departments = dd
	s.mu.Unlock()
	return nil
}

// GetCourseOptions refills the course dropdown with the courses of the
// selected department.
func (s *Selector) GetCourseOptions(ctx context.Context) error {
	s.mu.Lock()
	dept := s.departments.Selected
	s.mu.Unlock()
	if dept == "" {
		return fmt.Errorf("get course options: department: %w", ErrNoSelection)
	}

	courses, err := s.catalog.Courses(ctx, dept)
	if err != nil {
		s.raise(err)
		return fmt.Errorf("get course options: %w", err)
	}

	dd := newDropdown(coursePlaceholder, len(courses))
	for _, c := range courses {
		dd.Options = append(dd.Options, Option{Label: c.ID, Value: c.ID})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = dd
	for _, c := range courses {
		s.info[c.ID] = c
		if !slices.Contains(s.known, c.ID) {
			s.known = append(s.known, c.ID)
		}
	}
	return nil
}

// SelectDepartment makes dept the current department. Selecting a new
// department does not refresh the course list; call GetCourseOptions.
func (s *Selector) SelectDepartment(dept string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.departments.has(dept) {
		return fmt.Errorf("department %q: %w", dept, ErrUnknownOption)
	}
	s.departments.Selected = dept
	return nil
}

func (s *Selector) SelectCourse(courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.courses.has(courseID) {
		return fmt.Errorf("course %q: %w", courseID, ErrUnknownOption)
	}
	s.courses.Selected = courseID
	return nil
}

// AddToSelected appends the current course to the selection list. It
// reports false when the course is already selected or not a known course.
func (s *Selector) AddToSelected() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.courses.Selected
	if slices.Contains(s.selected, id) || !slices.Contains(s.known, id) {
		return Item{}, false
	}
	item := Item{CourseID: id, Name: s.info[id].Name}
	s.selected = append(s.selected, id)
	s.items = append(s.items, item)
	return item, true
}

// RemoveSelected drops a course from the selection list and its rendered
// item.
func (s *Selector) RemoveSelected(courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.selected)
	s.selected = slices.DeleteFunc(s.selected, func(id string) bool { return id == courseID })
	s.items = slices.DeleteFunc(s.items, func(it Item) bool { return it.CourseID == courseID })
	return len(s.selected) != before
}

func (s *Selector) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

// Courses returns every course id seen in any course listing.
func (s *Selector) Courses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.known)
}

// CourseInfo maps course id to its full catalog record.
func (s *Selector) CourseInfo() map[string]model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Course, len(s.info))
	for k, v := range s.info {
		out[k] = v
	}
	return out
}

// Course looks up one course record.
func (s *Selector) Course(courseID string) (model.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.info[courseID]
	return c, ok
}

func (s *Selector) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *Selector) Departments() Dropdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Dropdown{Options: slices.Clone(s.departments.Options), Selected: s.departments.Selected}
}

func (s *Selector) CourseOptions() Dropdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Dropdown{Options: slices.Clone(s.courses.Options), Selected: s.courses.Selected}
}

func (s *Selector) Alerts() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.alerts)
}

// DismissAlert removes the alert at index i.
func (s *Selector) DismissAlert(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.alerts) {
		return ErrNoAlert
	}
	s.alerts = slices.Delete(s.alerts, i, i+1)
	return nil
}

// Snapshot returns the selection list for persistence.
func (s *Selector) Snapshot() []model.SelectedCourse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SelectedCourse, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, model.SelectedCourse{ID: it.CourseID, Name: it.Name, Sections: s.info[it.CourseID].Sections})
	}
	return out
}

// Restore replaces the selection list. Restored courses become known so they
// can be painted without refetching their department.
func (s *Selector) Restore(selected []model.SelectedCourse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.items = nil
	for _, c := range selected {
		if slices.Contains(s.selected, c.ID) {
			continue
		}
		s.selected = append(s.selected, c.ID)
		s.items = append(s.items, Item{CourseID: c.ID, Name: c.Name})
		if !slices.Contains(s.known, c.ID) {
			s.known = append(s.known, c.ID)
		}
		if _, ok := s.info[c.ID]; !ok {
			s.info[c.ID] = model.Course{ID: c.ID, Name: c.Name, Sections: c.Sections}
		}
	}
}

func (s *Selector) raise(err error) {
	s.logger.Warn("catalog fetch failed", "error", err)
	s.mu.Lock()
	s.alerts = append(s.alerts, model.Alert{Message: alertMessage, Level: alertLevel})
	s.mu.Unlock()
}
