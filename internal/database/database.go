package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/config"
)

// DBTX is the query surface shared by *sql.DB, *sql.Conn and *sql.Tx.
// Repositories take it so the same code runs inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect adapts query text to the configured driver.
type Dialect struct {
	Driver string
}

// Rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (d Dialect) Rebind(query string) string {
	if d.Driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Placeholders returns n comma-separated bind markers.
func (d Dialect) Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Open connects to the configured database and validates the connection.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sql.DB, Dialect, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open database: %w", err)
	}

	maxConns := cfg.MaxDBConns
	if cfg.DBDriver == config.DriverSQLite || maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("driver", cfg.DBDriver).
		Int("max_conns", maxConns).
		Msg("Database connected")

	return db, Dialect{Driver: cfg.DBDriver}, nil
}

// DSN returns the driver-specific data source name for cfg.
func DSN(cfg *config.Config) (string, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		sep := "?"
		if strings.Contains(cfg.DatabaseURL, "?") {
			sep = "&"
		}
		return cfg.DatabaseURL + sep + "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", nil
	case config.DriverPostgres:
		return cfg.DatabaseURL, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
