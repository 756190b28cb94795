// ABOUTME: SQLite implementation of the KV interface using modernc.org/sqlite
// ABOUTME: Provides durable visitor-profile storage with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteKV implements the KV interface using SQLite. It is the durable
// analogue of browser profile storage: one small database per profile,
// holding session tokens and similar widget state.
type SQLiteKV struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteKV creates a new SQLite-backed KV store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteKV{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("widget storage initialized", "path", path)
	return s, nil
}

// createSchema creates the storage table if it doesn't exist
func (s *SQLiteKV) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS widget_storage (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Get returns the value for key, or ErrNotFound.
func (s *SQLiteKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM widget_storage WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading key %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any existing value.
func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO widget_storage (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM widget_storage WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
