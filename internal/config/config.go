package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application settings.
// It is read from the environment once at start-up and treated as immutable.
type Config struct {
	// Database
	DatabaseURL string

	// Redis (optional). When empty, change notifications use PostgreSQL LISTEN/NOTIFY.
	RedisURL string

	// Identity
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURL   string
	AllowAnonymousLogin bool

	// Session
	SessionSecret string
	SessionMaxAge int

	// Rate Limit (req/min/user)
	RateLimitGeneral int
	RateLimitLogin   int

	// Photo
	PhotoMaxBytes     int64
	PhotoFetchTimeout time.Duration

	// Worker
	SweepInterval          time.Duration
	SessionCleanupInterval time.Duration

	// Localization
	DefaultLanguage string

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// GoogleLoginEnabled reports whether all Google OAuth settings are present.
func (c *Config) GoogleLoginEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Load reads the Config from the environment. Malformed optional values,
// and zero or negative quotas, sizes and intervals, fall back to their
// defaults; a missing required value is an error.
func Load() (*Config, error) {
	var e env

	cfg := &Config{
		DatabaseURL:   e.required("DATABASE_URL"),
		SessionSecret: e.required("SESSION_SECRET"),
		BaseURL:       e.required("BASE_URL"),
	}
	if len(e.missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", e.missing)
	}

	cfg.RedisURL = e.str("REDIS_URL", "")
	cfg.GoogleClientID = e.str("GOOGLE_CLIENT_ID", "")
	cfg.GoogleClientSecret = e.str("GOOGLE_CLIENT_SECRET", "")
	cfg.GoogleRedirectURL = e.str("GOOGLE_REDIRECT_URL", "")
	cfg.AllowAnonymousLogin = parsed("ALLOW_ANONYMOUS_LOGIN", true, strconv.ParseBool)
	cfg.SessionMaxAge = parsed("SESSION_MAX_AGE", 24*60*60, positive(strconv.Atoi))
	cfg.RateLimitGeneral = parsed("RATE_LIMIT_GENERAL", 120, positive(strconv.Atoi))
	cfg.RateLimitLogin = parsed("RATE_LIMIT_LOGIN", 10, positive(strconv.Atoi))
	cfg.PhotoMaxBytes = parsed("PHOTO_MAX_BYTES", int64(500*1024), positive(parseInt64))
	cfg.PhotoFetchTimeout = parsed("PHOTO_FETCH_TIMEOUT", 10*time.Second, positive(time.ParseDuration))
	cfg.SweepInterval = parsed("SWEEP_INTERVAL", time.Hour, positive(time.ParseDuration))
	cfg.SessionCleanupInterval = parsed("SESSION_CLEANUP_INTERVAL", 24*time.Hour, positive(time.ParseDuration))
	cfg.DefaultLanguage = e.str("DEFAULT_LANGUAGE", "so")
	cfg.LogLevel = e.str("LOG_LEVEL", "info")
	cfg.ServerPort = e.str("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = e.str("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = e.str("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if !cfg.AllowAnonymousLogin && !cfg.GoogleLoginEnabled() {
		return nil, fmt.Errorf("no sign-in method enabled: set GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL or ALLOW_ANONYMOUS_LOGIN=true")
	}
	return cfg, nil
}

// env reads variables and remembers which required ones were empty.
type env struct {
	missing []string
}

func (e *env) required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		e.missing = append(e.missing, key)
	}
	return v
}

func (e *env) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parsed returns parse(value of key), or fallback when the variable is
// empty or does not parse.
func parsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

type number interface {
	~int | ~int64
}

// positive wraps parse so that values <= 0 are rejected.
func positive[T number](parse func(string) (T, error)) func(string) (T, error) {
	return func(raw string) (T, error) {
		v, err := parse(raw)
		if err == nil && v <= 0 {
			err = fmt.Errorf("%q is not positive", raw)
		}
		return v, err
	}
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
