package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/dukerupert/coursecal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

type PageHandler struct {
	sessions  *session.Manager
	templates *template.Template
	logger    *slog.Logger
}

func NewPageHandler(sessions *session.Manager, logger *slog.Logger) *PageHandler {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	return &PageHandler{
		sessions:  sessions,
		templates: tmpl,
		logger:    logger,
	}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	data := map[string]any{
		"Title":       "Course Scheduler",
		"View":        sess.Painter.View(),
		"Entries":     sess.Painter.Entries(),
		"Departments": sess.Selector.Departments(),
		"Courses":     sess.Selector.CourseOptions(),
		"Selected":    sess.Selector.Items(),
		"Alerts":      sess.Selector.Alerts(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("template render error", "template", "index.html", "error", err)
	}
}
