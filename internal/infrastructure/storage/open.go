package storage

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects the configured database driver. Postgres is the production
// backend; sqlite serves single-host and local setups.
func Open(driver, dsn string) (*sql.DB, error) {
	switch normalizeDriver(driver) {
	case "postgres":
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	case "sqlite":
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// The modernc driver serializes through a single connection best.
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// Placeholder returns the parameter placeholder format the driver expects.
func Placeholder(driver string) sq.PlaceholderFormat {
	if normalizeDriver(driver) == "postgres" {
		return sq.Dollar
	}
	return sq.Question
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return driver
	}
}
