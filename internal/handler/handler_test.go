package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/coursecal/internal/catalog"
	"github.com/dukerupert/coursecal/internal/database"
	"github.com/dukerupert/coursecal/internal/model"
	"github.com/dukerupert/coursecal/internal/schedule"
	"github.com/dukerupert/coursecal/internal/session"
	"github.com/dukerupert/coursecal/internal/store"
	ws "github.com/dukerupert/coursecal/internal/websocket"
)

const testToken = "6f1c2a9e-3b7d-4e0a-9c55-0d7f1e2b3a4c"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCatalog struct {
	srv      *httptest.Server
	failDept bool
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	f := &fakeCatalog{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /courses/departments", func(w http.ResponseWriter, r *http.Request) {
		if f.failDept {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"dept_id":"CMSC","department":"Computer Science"},{"dept_id":"MATH","department":"Mathematics"}]`))
	})
	mux.HandleFunc("GET /courses", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("dept_id") {
		case "CMSC":
			w.Write([]byte(`[
				{"course_id":"CMSC131","name":"Object-Oriented Programming I","dept_id":"CMSC","sections":["CMSC131-0101","CMSC131-0201"]},
				{"course_id":"CMSC132","name":"Object-Oriented Programming II","dept_id":"CMSC","sections":["CMSC132-0101"]},
				{"course_id":"CMSC999","name":"Broken Times","dept_id":"CMSC","sections":["CMSC999-0101"]},
				{"course_id":"CMSC888","name":"Garbled Section","dept_id":"CMSC","sections":["CMSC888-0101"]}
			]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET /courses/sections/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "CMSC131-0101":
			w.Write([]byte(`[{"section_id":"CMSC131-0101","course":"CMSC131","meetings":[{"days":"MW","start_time":"10:00am","end_time":"10:50am","building":"IRB","room":"0324"}]}]`))
		case "CMSC131-0201":
			w.Write([]byte(`[{"section_id":"CMSC131-0201","course":"CMSC131","meetings":[{"days":"TUTH","start_time":"2:00pm","end_time":"3:15pm","building":"IRB","room":"1116"}]}]`))
		case "CMSC132-0101":
			w.Write([]byte(`[{"section_id":"CMSC132-0101","course":"CMSC132","meetings":[{"days":"TUTH","start_time":"11:00am","end_time":"12:15pm","building":"IRB","room":"0318"}]}]`))
		case "CMSC888-0101":
			w.Write([]byte(`<html>oops</html>`))
		case "CMSC999-0101":
			w.Write([]byte(`[{"section_id":"CMSC999-0101","course":"CMSC999","meetings":[{"days":"F","start_time":"25:00pm","end_time":"1:00pm"}]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

type testEnv struct {
	catalog  *fakeCatalog
	sessions *session.Manager
	store    *store.SessionStore
	mux      *http.ServeMux
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fc := newFakeCatalog(t)
	client := catalog.NewClient(catalog.Config{BaseURL: fc.srv.URL})
	st := store.NewSessionStore(db, schedule.Location())
	sessions := session.NewManager(st, client, ws.NewHub(discard), discard)

	cat := NewCatalogHandler(client, discard)
	sel := NewSelectorHandler(sessions, discard)
	cal := NewCalendarHandler(sessions, discard)
	page := NewPageHandler(sessions, discard)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", page.Index)
	mux.HandleFunc("GET /api/departments", cat.Departments)
	mux.HandleFunc("GET /api/selector", sel.Get)
	mux.HandleFunc("POST /api/selector/departments", sel.RefreshDepartments)
	mux.HandleFunc("PUT /api/selector/department", sel.SelectDepartment)
	mux.HandleFunc("PUT /api/selector/course", sel.SelectCourse)
	mux.HandleFunc("POST /api/selector/selected", sel.AddSelected)
	mux.HandleFunc("DELETE /api/selector/selected/{course_id}", sel.RemoveSelected)
	mux.HandleFunc("DELETE /api/selector/alerts/{index}", sel.DismissAlert)
	mux.HandleFunc("GET /api/calendar", cal.Get)
	mux.HandleFunc("POST /api/calendar/courses", cal.AddCourse)
	mux.HandleFunc("POST /api/calendar/generate", cal.Generate)
	mux.HandleFunc("DELETE /api/calendar", cal.Clear)
	mux.HandleFunc("GET /api/calendar/export.csv", cal.Export)

	return &testEnv{catalog: fc, sessions: sessions, store: st, mux: mux}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req = req.WithContext(session.WithToken(req.Context(), testToken))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// pickCMSC loads departments and CMSC courses into the session's selector.
func (e *testEnv) pickCMSC(t *testing.T) {
	t.Helper()
	if rec := e.do(t, "POST", "/api/selector/departments", ""); rec.Code != http.StatusOK {
		t.Fatalf("refresh departments: status = %d, body = %s", rec.Code, rec.Body)
	}
	if rec := e.do(t, "PUT", "/api/selector/department", `{"dept_id":"CMSC"}`); rec.Code != http.StatusOK {
		t.Fatalf("select department: status = %d, body = %s", rec.Code, rec.Body)
	}
}

func (e *testEnv) selectCourse(t *testing.T, id string) {
	t.Helper()
	if rec := e.do(t, "PUT", "/api/selector/course", `{"course_id":"`+id+`"}`); rec.Code != http.StatusOK {
		t.Fatalf("select course %s: status = %d, body = %s", id, rec.Code, rec.Body)
	}
	if rec := e.do(t, "POST", "/api/selector/selected", ""); rec.Code != http.StatusCreated {
		t.Fatalf("add %s: status = %d, body = %s", id, rec.Code, rec.Body)
	}
}

func TestDepartmentsProxy(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "GET", "/api/departments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	got := decode[map[string][]map[string]string](t, rec)
	depts := got["departments"]
	if len(depts) != 2 || depts[0]["dept_id"] != "CMSC" || depts[1]["dept_id"] != "MATH" {
		t.Errorf("departments = %v", depts)
	}
	if _, ok := depts[0]["department"]; ok {
		t.Error("proxy should only expose dept_id")
	}
}

func TestDepartmentsProxyFailure(t *testing.T) {
	env := setupEnv(t)
	env.catalog.failDept = true

	rec := env.do(t, "GET", "/api/departments", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestSelectorFlow(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)

	state := decode[selectorState](t, env.do(t, "GET", "/api/selector", ""))
	if state.Departments.Selected != "CMSC" {
		t.Errorf("selected department = %q, want CMSC", state.Departments.Selected)
	}
	if len(state.Courses.Options) != 5 || state.Courses.Options[0].Label != "Select a Course" {
		t.Errorf("course options = %+v", state.Courses.Options)
	}

	env.selectCourse(t, "CMSC131")

	// Adding the same course again is a no-op.
	rec := env.do(t, "POST", "/api/selector/selected", "")
	if rec.Code != http.StatusOK {
		t.Errorf("second add: status = %d, want %d", rec.Code, http.StatusOK)
	}
	state = decode[selectorState](t, rec)
	if len(state.Selected) != 1 || state.Selected[0].CourseID != "CMSC131" {
		t.Fatalf("selected = %+v", state.Selected)
	}

	rec = env.do(t, "DELETE", "/api/selector/selected/CMSC131", "")
	state = decode[selectorState](t, rec)
	if len(state.Selected) != 0 {
		t.Errorf("selected after remove = %+v", state.Selected)
	}
}

func TestSelectUnknownDepartment(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)

	rec := env.do(t, "PUT", "/api/selector/department", `{"dept_id":"HIST"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCourseFetchFailureRaisesAlert(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)

	rec := env.do(t, "PUT", "/api/selector/department", `{"dept_id":"MATH"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	state := decode[selectorState](t, rec)
	if len(state.Alerts) != 1 || state.Alerts[0].Message != "An error occurred" || state.Alerts[0].Level != "danger" {
		t.Fatalf("alerts = %+v", state.Alerts)
	}
	// The CMSC course list is kept.
	if len(state.Courses.Options) != 5 {
		t.Errorf("course options = %+v", state.Courses.Options)
	}

	if rec := env.do(t, "DELETE", "/api/selector/alerts/0", ""); rec.Code != http.StatusOK {
		t.Errorf("dismiss: status = %d", rec.Code)
	}
	if rec := env.do(t, "DELETE", "/api/selector/alerts/0", ""); rec.Code != http.StatusNotFound {
		t.Errorf("dismiss missing: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := env.do(t, "DELETE", "/api/selector/alerts/x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("dismiss bad index: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAddCourseDefaultsToFirstSection(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)

	rec := env.do(t, "POST", "/api/calendar/courses", `{"course_id":"CMSC131"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	got := decode[map[string][]model.DisplayEntry](t, rec)["entries"]
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	for _, e := range got {
		if e.Title != "CMSC131-0101" || e.Location != "IRB 0324" {
			t.Errorf("entry = %+v", e)
		}
	}
	if got[0].Start.Weekday().String() != "Monday" || got[1].Start.Weekday().String() != "Wednesday" {
		t.Errorf("days = %v, %v", got[0].Start.Weekday(), got[1].Start.Weekday())
	}
	if got[0].Start.Hour() != 10 || got[0].End.Minute() != 50 {
		t.Errorf("times = %v - %v", got[0].Start, got[0].End)
	}
	if got[0].BgColor != got[1].BgColor {
		t.Error("entries of one course should share a color")
	}
}

func TestAddCourseExplicitSection(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)

	rec := env.do(t, "POST", "/api/calendar/courses", `{"course_id":"CMSC131","section_id":"CMSC131-0201"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	got := decode[map[string][]model.DisplayEntry](t, rec)["entries"]
	if len(got) != 2 || got[0].Title != "CMSC131-0201" || got[0].Start.Hour() != 14 {
		t.Errorf("entries = %+v", got)
	}
}

func TestAddCourseErrors(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"unknown course", `{"course_id":"HIST200"}`, http.StatusNotFound},
		{"invalid time", `{"course_id":"CMSC999"}`, http.StatusUnprocessableEntity},
		{"missing section", `{"course_id":"CMSC131","section_id":"CMSC131-9999"}`, http.StatusOK},
		{"malformed section", `{"course_id":"CMSC888"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/calendar/courses", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	cal := decode[calendarState](t, env.do(t, "GET", "/api/calendar", ""))
	if len(cal.Entries) != 0 {
		t.Errorf("failed adds left %d entries", len(cal.Entries))
	}
}

func TestGenerateAndClear(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)
	env.selectCourse(t, "CMSC131")
	env.selectCourse(t, "CMSC132")
	env.selectCourse(t, "CMSC999")

	rec := env.do(t, "POST", "/api/calendar/generate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var got struct {
		Entries  []model.DisplayEntry `json:"entries"`
		Failures []generateFailure    `json:"failures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Entries) != 4 {
		t.Errorf("got %d entries, want 4", len(got.Entries))
	}
	if len(got.Failures) != 1 || got.Failures[0].CourseID != "CMSC999" {
		t.Errorf("failures = %+v", got.Failures)
	}

	// Generating twice repaints from scratch.
	rec = env.do(t, "POST", "/api/calendar/generate", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Entries) != 4 {
		t.Errorf("after regenerate got %d entries, want 4", len(got.Entries))
	}
	if got.Entries[0].ID != 5 {
		t.Errorf("first id after regenerate = %d, want 5", got.Entries[0].ID)
	}

	if rec := env.do(t, "DELETE", "/api/calendar", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear: status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	cal := decode[calendarState](t, env.do(t, "GET", "/api/calendar", ""))
	if len(cal.Entries) != 0 {
		t.Errorf("entries after clear = %d", len(cal.Entries))
	}
	if cal.View.Timezone != "America/New_York" || !cal.View.IsReadOnly {
		t.Errorf("view = %+v", cal.View)
	}
}

func TestSessionPersisted(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)
	env.selectCourse(t, "CMSC131")
	if rec := env.do(t, "POST", "/api/calendar/courses", `{"course_id":"CMSC131"}`); rec.Code != http.StatusCreated {
		t.Fatalf("add: status = %d", rec.Code)
	}

	snap, err := env.store.Load(testToken)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap == nil {
		t.Fatal("session was not saved")
	}
	if len(snap.Entries) != 2 || snap.NextEntryID != 3 || snap.PaletteUsed != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Selected) != 1 || snap.Selected[0].ID != "CMSC131" {
		t.Errorf("selected = %+v", snap.Selected)
	}
}

func TestExportCSV(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)
	env.do(t, "POST", "/api/calendar/courses", `{"course_id":"CMSC131"}`)

	rec := env.do(t, "GET", "/api/calendar/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want header + 2", len(records))
	}
}

func TestIndexPage(t *testing.T) {
	env := setupEnv(t)
	env.pickCMSC(t)

	rec := env.do(t, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Select a Department", `value="CMSC" selected`, `data-date="2000-01-02"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestIndexPageWiresClient(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"new tui.Calendar(",
		"createEvents(",
		`api("GET", "/api/calendar")`,
		`"/api/selector/department"`,
		`"/api/calendar/generate"`,
		`"/api/selector/alerts/"`,
		`new WebSocket(scheme + location.host + "/ws")`,
		`"calendar_entry_created"`,
		`"calendar_cleared"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page script missing %q", want)
		}
	}
	if strings.Contains(body, "data-entries") {
		t.Error("page still carries the entries count attribute")
	}
}
