// Package testutil provides a migrated throwaway database and fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/database"
)

// Logger returns a logger that discards everything.
func Logger() zerolog.Logger {
	return zerolog.Nop()
}

// Config returns a SQLite config pointing at a fresh file under tb.TempDir().
func Config(tb testing.TB) *config.Config {
	tb.Helper()
	return &config.Config{
		GinMode:      "test",
		DBDriver:     config.DriverSQLite,
		DatabaseURL:  filepath.Join(tb.TempDir(), "forms.db"),
		MaxDBConns:   1,
		MaxBodyBytes: 1 << 20,
	}
}

// DB migrates a new SQLite database and returns an open handle, closed on cleanup.
func DB(tb testing.TB) (*sql.DB, database.Dialect) {
	tb.Helper()
	return Open(tb, Config(tb))
}

// Open migrates and opens the database described by cfg.
func Open(tb testing.TB, cfg *config.Config) (*sql.DB, database.Dialect) {
	tb.Helper()

	if err := database.Migrate(cfg, Logger()); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	db, dialect, err := database.Open(context.Background(), cfg, Logger())
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	tb.Cleanup(func() { db.Close() })
	return db, dialect
}

// Redis connects to the server at REDIS_URL, skipping the test when it is unset.
// Tests must use keys of their own; nothing is flushed.
func Redis(tb testing.TB) *redis.Client {
	tb.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		tb.Skip("set REDIS_URL to run redis integration tests")
	}
	cfg := &config.Config{RedisURL: url}
	rdb, err := database.NewRedisClient(context.Background(), cfg, Logger())
	if err != nil {
		tb.Fatalf("connect test redis: %v", err)
	}
	tb.Cleanup(func() { rdb.Close() })
	return rdb
}

// JSONEqual fails the test unless got and want decode to the same value.
func JSONEqual(tb testing.TB, name string, got, want []byte) {
	tb.Helper()

	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		tb.Fatalf("%s: decode got %q: %v", name, got, err)
	}
	if err := json.Unmarshal(want, &w); err != nil {
		tb.Fatalf("%s: decode want %q: %v", name, want, err)
	}
	if !reflect.DeepEqual(g, w) {
		tb.Errorf("%s = %s, want %s", name, got, want)
	}
}
