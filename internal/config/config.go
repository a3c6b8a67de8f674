package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string
	DBPath          string
	CatalogURL      string
	CatalogTimeout  time.Duration
	CatalogCacheTTL time.Duration
	SessionTTL      time.Duration
	LogLevel        string
	LogFormat       string
	// RateLimit is the number of catalog requests a client may make per minute.
	RateLimit int
}

func Load() (Config, error) {
	cfg := Config{
		Port:            getenvDefault("COURSECAL_PORT", "8080"),
		DBPath:          getenvDefault("COURSECAL_DB_PATH", "coursecal.db"),
		CatalogURL:      getenvDefault("COURSECAL_CATALOG_URL", "https://api.umd.io/v1"),
		CatalogTimeout:  getenvDuration("COURSECAL_CATALOG_TIMEOUT", 10*time.Second),
		CatalogCacheTTL: getenvDuration("COURSECAL_CATALOG_CACHE_TTL", 30*time.Minute),
		SessionTTL:      getenvDuration("COURSECAL_SESSION_TTL", 30*24*time.Hour),
		LogLevel:        getenvDefault("COURSECAL_LOG_LEVEL", "info"),
		LogFormat:       getenvDefault("COURSECAL_LOG_FORMAT", "text"),
		RateLimit:       getenvInt("COURSECAL_RATE_LIMIT", 60),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if !strings.HasPrefix(c.CatalogURL, "http://") && !strings.HasPrefix(c.CatalogURL, "https://") {
		return fmt.Errorf("invalid catalog url: %q", c.CatalogURL)
	}
	if c.CatalogTimeout <= 0 {
		return errors.New("catalog timeout must be > 0")
	}
	if c.CatalogCacheTTL < 0 {
		return errors.New("catalog cache ttl must be >= 0")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be > 0")
	}
	if c.RateLimit <= 0 {
		return errors.New("rate limit must be > 0")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
