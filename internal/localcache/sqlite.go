package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps entries in a single file so they survive daemon
// restarts. Use ":memory:" in tests.
type SQLiteBackend struct {
	conn *sql.DB
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("localcache: opening sqlite: %w", err)
	}
	// one connection, otherwise every ":memory:" connection is its own database
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("localcache: pinging sqlite: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("localcache: setting WAL mode: %w", err)
	}

	b := &SQLiteBackend{conn: conn}
	if err := b.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("localcache: running migrations: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

func (b *SQLiteBackend) migrate() error {
	_, err := b.conn.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			sensitive  INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_cache_entries_sensitive ON cache_entries(sensitive);
	`)
	if err != nil {
		return fmt.Errorf("creating cache_entries table: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e         Entry
		expiresAt int64
		sensitive int
	)
	err := b.conn.QueryRowContext(ctx,
		`SELECT key, data, expires_at, sensitive FROM cache_entries WHERE key = ?`, key,
	).Scan(&e.Key, &e.Data, &expiresAt, &sensitive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("localcache: reading %s: %w", key, err)
	}
	if expiresAt != 0 {
		e.ExpiresAt = time.UnixMilli(expiresAt)
	}
	e.Sensitive = sensitive != 0
	return e, true, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, e Entry) error {
	var expiresAt int64
	if !e.ExpiresAt.IsZero() {
		expiresAt = e.ExpiresAt.UnixMilli()
	}
	sensitive := 0
	if e.Sensitive {
		sensitive = 1
	}
	_, err := b.conn.ExecContext(ctx,
		`INSERT INTO cache_entries (key, data, expires_at, sensitive)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   data = excluded.data,
		   expires_at = excluded.expires_at,
		   sensitive = excluded.sensitive`,
		e.Key, e.Data, expiresAt, sensitive,
	)
	if err != nil {
		return fmt.Errorf("localcache: writing %s: %w", e.Key, err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("localcache: deleting %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) DeleteSensitive(ctx context.Context) error {
	if _, err := b.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE sensitive = 1`); err != nil {
		return fmt.Errorf("localcache: purging sensitive entries: %w", err)
	}
	return nil
}
