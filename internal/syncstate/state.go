// Package syncstate persists the engine's local bookkeeping (last sync time)
// in a SQLite database so it survives process restarts.
package syncstate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// lastSyncKey is the fixed key under which the last successful sync time is
// stored, as an RFC3339 string. Absence means "never synced".
const lastSyncKey = "last_sync_at"

// Store is the local sync state database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database at dir/state.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sync_state (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the stored value for a key, or "" if unset.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores a value under a key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sync_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		key, value,
	)
	return err
}

// LastSyncAt returns the last successful sync time, or nil if never synced.
func (s *Store) LastSyncAt() (*time.Time, error) {
	raw, err := s.Get(lastSyncKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parsing stored sync time %q: %w", raw, err)
	}
	return &t, nil
}

// SetLastSyncAt durably records the last successful sync time.
func (s *Store) SetLastSyncAt(t time.Time) error {
	return s.Set(lastSyncKey, t.UTC().Format(time.RFC3339))
}

// Close closes the state database.
func (s *Store) Close() error {
	return s.db.Close()
}
