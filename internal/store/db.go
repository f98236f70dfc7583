package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrActivityNotFound is returned when an activity doesn't exist
var ErrActivityNotFound = errors.New("activity not found")

// ErrAthleteNotFound is returned when an athlete doesn't exist
var ErrAthleteNotFound = errors.New("athlete not found")

// ErrNoRecords is returned when an athlete has no personal records row yet
var ErrNoRecords = errors.New("no personal records stored")

// ErrCacheMiss is returned when no active cache entry matches
var ErrCacheMiss = errors.New("cache entry not found")

// ErrNoToken is returned when no oauth token is stored for a device
var ErrNoToken = errors.New("no oauth token stored")

// DB wraps the SQL connection and exposes the repository methods.
type DB struct {
	*sql.DB
}

// Open opens the SQLite database named by dsn, creating the file and
// applying migrations as needed. Accepted forms are a plain file path and
// sqlite://<path>; any other URL scheme is rejected.
func Open(dsn string) (*DB, error) {
	path, err := sqlitePath(dsn)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Run migrations
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &DB{db}, nil
}

// sqlitePath extracts the file path from a DSN, rejecting non-sqlite schemes
func sqlitePath(dsn string) (string, error) {
	if dsn == "" {
		return "", errors.New("empty database DSN")
	}
	if rest, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		if rest == "" {
			return "", errors.New("empty sqlite path in DSN")
		}
		return rest, nil
	}
	if idx := strings.Index(dsn, "://"); idx >= 0 {
		return "", fmt.Errorf("unsupported database scheme %q: only sqlite is supported", dsn[:idx])
	}
	return dsn, nil
}
