package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/coursecal/internal/model"
)

// ErrMalformed reports a catalog response body that could not be decoded.
var ErrMalformed = errors.New("malformed catalog response")

const (
	DefaultBaseURL  = "https://api.umd.io/v1"
	defaultCacheTTL = 30 * time.Minute
)

// Config holds catalog client configuration.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type cacheEntry struct {
	body      []byte
	fetchedAt time.Time
}

// Client fetches departments, courses and sections from the course catalog.
// Responses are cached per URL for CacheTTL.
type Client struct {
	baseURL    string
	ttl        time.Duration
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		ttl:        cfg.CacheTTL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      make(map[string]cacheEntry),
	}
}

// Departments returns every department in the catalog.
func (c *Client) Departments(ctx context.Context) ([]model.Department, error) {
	var depts []model.Department
	if err := c.get(ctx, c.baseURL+"/courses/departments", &depts); err != nil {
		return nil, fmt.Errorf("departments: %w", err)
	}
	return depts, nil
}

// Courses returns the courses offered by a department.
func (c *Client) Courses(ctx context.Context, deptID string) ([]model.Course, error) {
	u := c.baseURL + "/courses?dept_id=" + url.QueryEscape(deptID)
	var courses []model.Course
	if err := c.get(ctx, u, &courses); err != nil {
		return nil, fmt.Errorf("courses for %s: %w", deptID, err)
	}
	return courses, nil
}

// Sections returns the sections matching a section id. The catalog answers
// with a list even for a single id.
func (c *Client) Sections(ctx context.Context, sectionID string) ([]model.Section, error) {
	u := c.baseURL + "/courses/sections/" + url.PathEscape(sectionID)
	var sections []model.Section
	if err := c.get(ctx, u, &sections); err != nil {
		return nil, fmt.Errorf("section %s: %w", sectionID, err)
	}
	return sections, nil
}

// Invalidate drops every cached response.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, u string, v any) error {
	if body, ok := c.cached(u); ok {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The catalog answers unknown ids with 404; callers treat that as
		// an empty result.
		return json.Unmarshal([]byte("[]"), v)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if string(raw) == "null" {
		raw = json.RawMessage("[]")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c.mu.Lock()
	c.cache[u] = cacheEntry{body: raw, fetchedAt: time.Now()}
	c.mu.Unlock()
	return nil
}

func (c *Client) cached(u string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[u]
	if !ok || time.Since(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.body, true
}
