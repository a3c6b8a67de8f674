package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/coursecal/internal/catalog"
	"github.com/dukerupert/coursecal/internal/handler"
	"github.com/dukerupert/coursecal/internal/middleware"
	"github.com/dukerupert/coursecal/internal/schedule"
	"github.com/dukerupert/coursecal/internal/session"
	"github.com/dukerupert/coursecal/internal/store"
	ws "github.com/dukerupert/coursecal/internal/websocket"
)

// Config holds the server settings that do not belong to a single component.
type Config struct {
	SessionTTL time.Duration
	// RateLimit is the number of catalog-backed requests allowed per client
	// per minute.
	RateLimit int
}

type Server struct {
	db          *sql.DB
	cfg         Config
	hub         *ws.Hub
	sessions    *session.Manager
	catalogH    *handler.CatalogHandler
	selectorH   *handler.SelectorHandler
	calendarH   *handler.CalendarHandler
	pageH       *handler.PageHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, catalogClient *catalog.Client, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	sessionStore := store.NewSessionStore(db, schedule.Location())
	sessions := session.NewManager(sessionStore, catalogClient, hub, logger.With("component", "session"))

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		sessions:    sessions,
		catalogH:    handler.NewCatalogHandler(catalogClient, logger.With("component", "catalog")),
		selectorH:   handler.NewSelectorHandler(sessions, logger.With("component", "selector")),
		calendarH:   handler.NewCalendarHandler(sessions, logger.With("component", "calendar")),
		pageH:       handler.NewPageHandler(sessions, logger.With("component", "page")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Sessions returns the session manager for cleanup tasks.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Catalog-backed routes
	mux.HandleFunc("GET /api/departments", s.rateLimitedHandler(s.catalogH.Departments))
	mux.HandleFunc("POST /api/selector/departments", s.rateLimitedHandler(s.selectorH.RefreshDepartments))
	mux.HandleFunc("PUT /api/selector/department", s.rateLimitedHandler(s.selectorH.SelectDepartment))
	mux.HandleFunc("POST /api/calendar/courses", s.rateLimitedHandler(s.calendarH.AddCourse))
	mux.HandleFunc("POST /api/calendar/generate", s.rateLimitedHandler(s.calendarH.Generate))

	// Selector routes
	mux.HandleFunc("GET /api/selector", s.selectorH.Get)
	mux.HandleFunc("PUT /api/selector/course", s.selectorH.SelectCourse)
	mux.HandleFunc("POST /api/selector/selected", s.selectorH.AddSelected)
	mux.HandleFunc("DELETE /api/selector/selected/{course_id}", s.selectorH.RemoveSelected)
	mux.HandleFunc("DELETE /api/selector/alerts/{index}", s.selectorH.DismissAlert)

	// Calendar routes
	mux.HandleFunc("GET /api/calendar", s.calendarH.Get)
	mux.HandleFunc("DELETE /api/calendar", s.calendarH.Clear)
	mux.HandleFunc("GET /api/calendar/export.csv", s.calendarH.Export)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, func(r *http.Request) string {
		return session.Token(r.Context())
	}, s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /{$}", s.pageH.Index)

	var h http.Handler = mux
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.Session(s.cfg.SessionTTL)(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.SessionOrIP, s.cfg.RateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
