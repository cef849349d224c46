package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values for DB_DRIVER.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config holds all application configuration.
type Config struct {
	ServerPort  string
	GinMode     string
	LogLevel    string
	LogFormat   string
	DBDriver    string
	DatabaseURL string
	MaxDBConns  int
	// RedisURL enables the bank tree cache. Empty disables it.
	RedisURL string
	CacheTTL time.Duration
	// JWTSecret enables bearer-token auth on write routes. Empty disables it.
	JWTSecret          string
	JWTExpiry          time.Duration
	MaxBodyBytes       int64
	RateLimitPerMinute int
	// AllowedOrigins controls HTTP CORS.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "pretty"),
		DBDriver:           getEnv("DB_DRIVER", DriverSQLite),
		DatabaseURL:        getEnv("DATABASE_URL", "./form_storage.db"),
		MaxDBConns:         getEnvInt("MAX_DB_CONNS", 16),
		RedisURL:           getEnv("REDIS_URL", ""),
		CacheTTL:           time.Duration(getEnvInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpiry:          time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_MB", 10)) * 1024 * 1024,
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		AllowedOrigins:     parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}

	// SQLite serializes writers; one handle avoids SQLITE_BUSY under load.
	if cfg.DBDriver == DriverSQLite {
		cfg.MaxDBConns = 1
	}
	return cfg
}

// CacheEnabled reports whether a Redis URL was configured.
func (c *Config) CacheEnabled() bool { return c.RedisURL != "" }

// AuthEnabled reports whether write routes require a bearer token.
func (c *Config) AuthEnabled() bool { return c.JWTSecret != "" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
