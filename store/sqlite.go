package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS metrics (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS lists (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	key   TEXT NOT NULL,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lists_key ON lists(key, id);
`

// SQLiteStore is a durable Store backed by an embedded sqlite database.
// Expired metric rows are ignored on read and overwritten on the next write.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and migrates) the database at path. Use ":memory:"
// for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// StoreMetrics implements Store.
func (s *SQLiteStore) StoreMetrics(ctx context.Context, key string, value map[string]any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode metrics for %s: %w", key, err)
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metrics (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, string(raw), expiresAt)
	if err != nil {
		return fmt.Errorf("store metrics %s: %w", key, err)
	}
	return nil
}

// GetMetrics returns the stored document, or nil when absent or expired.
func (s *SQLiteStore) GetMetrics(ctx context.Context, key string) (map[string]any, error) {
	var raw string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM metrics WHERE key = ?`, key).Scan(&raw, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metrics %s: %w", key, err)
	}
	if expiresAt > 0 && s.now().Unix() > expiresAt {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode metrics %s: %w", key, err)
	}
	return doc, nil
}

// AddToList implements Store.
func (s *SQLiteStore) AddToList(ctx context.Context, key string, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode list entry for %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO lists (key, value) VALUES (?, ?)`, key, string(raw)); err != nil {
		return fmt.Errorf("append to list %s: %w", key, err)
	}
	return nil
}

// GetList implements Store.
func (s *SQLiteStore) GetList(ctx context.Context, key string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM lists WHERE key = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", key, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan list %s: %w", key, err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode list entry for %s: %w", key, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
