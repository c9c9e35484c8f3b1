// Package database opens the SQLite file that holds nodectl's action
// history.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	appDir = "nodectl"
	dbFile = "history.db"

	// BusyTimeoutMs is how long a writer waits for another nodectl process
	// holding the write lock.
	BusyTimeoutMs = 5000
)

// pragmas are applied to every connection.
var pragmas = []string{
	"journal_mode(WAL)",
	fmt.Sprintf("busy_timeout(%d)", BusyTimeoutMs),
	"synchronous(NORMAL)",
}

var pathOverride string

// SetPath overrides the default database path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override. Intended for testing.
func ResetPath() { pathOverride = "" }

// DefaultPath returns the history database path under the user config
// directory.
func DefaultPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("database: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, dbFile), nil
}

// Open opens the SQLite database at path, creating it and its directory
// if needed. The pool holds a single connection, so concurrent writers in
// one process are serialized by database/sql.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("database: failed to create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("database: failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: failed to open %s: %w", path, err)
	}
	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}
