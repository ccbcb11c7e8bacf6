// Package cache keeps platform API responses in a local SQLite file so repeated
// update checks within a platform's freshness window skip the network.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is a key/value store of response bodies with their store time.
type Cache struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens or creates the cache database at path. ":memory:" works for tests.
func Open(path string) (*Cache, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY and keeps ":memory:" a single database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: pinging database: %w", err)
	}

	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			key       TEXT PRIMARY KEY,
			body      BLOB NOT NULL,
			stored_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_responses_stored_at ON responses(stored_at);
	`)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: creating responses table: %w", err)
	}

	return &Cache{conn: conn, now: time.Now}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Get returns the body stored under key if it is no older than maxStale.
// ok is false on a miss or a stale entry.
func (c *Cache) Get(ctx context.Context, key string, maxStale time.Duration) (body []byte, ok bool, err error) {
	var storedAt int64
	err = c.conn.QueryRowContext(ctx,
		`SELECT body, stored_at FROM responses WHERE key = ?`, key,
	).Scan(&body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: reading %s: %w", key, err)
	}

	if c.now().Sub(time.UnixMilli(storedAt)) > maxStale {
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores body under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, body []byte) error {
	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO responses (key, body, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, stored_at = excluded.stored_at`,
		key, body, c.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache: writing %s: %w", key, err)
	}
	return nil
}

// Prune deletes entries older than olderThan and reports how many went.
func (c *Cache) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := c.now().Add(-olderThan).UnixMilli()
	res, err := c.conn.ExecContext(ctx, `DELETE FROM responses WHERE stored_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache: pruning: %w", err)
	}
	return res.RowsAffected()
}
