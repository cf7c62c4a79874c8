package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps sql.DB for the place status service.
type DB struct {
	*sql.DB
}

// NewDB opens database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS places (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			address TEXT,
			opening_hours TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Exactly one of day_of_week / specific_date is expected, but both are
		// read independently.
		`CREATE TABLE IF NOT EXISTS closed_days (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			place_id INTEGER NOT NULL,
			day_of_week INTEGER CHECK (day_of_week BETWEEN 0 AND 6),
			specific_date TEXT,
			note TEXT,
			source TEXT NOT NULL DEFAULT 'manual',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (place_id) REFERENCES places(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_places_active ON places(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_days_place ON closed_days(place_id, source)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
