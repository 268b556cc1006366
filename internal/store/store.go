// Package store handles SQLite persistence.
//
// Data is kept as JSON blobs under string keys, one blob per collection, so
// the host services can treat each collection as a whole-list load/save.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

const (
	// KeyTests holds the scheduled test definitions.
	KeyTests = "stenoTests"
	// KeyResults holds the stored test results.
	KeyResults = "testResults"
)

// Store wraps SQLite access for key-value data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored under key. The boolean is false when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Collection loads and saves a whole list of T as one JSON blob.
type Collection[T any] struct {
	store *Store
	key   string
}

// NewCollection binds a collection to key.
func NewCollection[T any](s *Store, key string) *Collection[T] {
	return &Collection[T]{store: s, key: key}
}

// Load returns every item in the collection. A missing key yields an empty list.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.key, err)
	}
	if !ok {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.key, err)
	}
	return items, nil
}

// Save replaces the collection with items.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	if err := c.store.Put(ctx, c.key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.key, err)
	}
	return nil
}
