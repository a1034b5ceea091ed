// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// dbConn is the subset of pgxpool.Pool the stores rely on; pgxmock satisfies
// it for tests.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// PoolConfig controls the shared Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// NewPool creates a pgx connection pool from the provided config.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// Archive is the Postgres-backed ArchiveStore.
type Archive struct {
	conn  dbConn
	clock sentry.Clock
}

// NewArchive constructs an Archive on an existing connection pool.
func NewArchive(conn dbConn, clock sentry.Clock) (*Archive, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Archive{conn: conn, clock: clock}, nil
}

// GetPage loads the archive record for url.
func (a *Archive) GetPage(ctx context.Context, url string) (sentry.Page, bool, error) {
	const query = `
SELECT url, title, content_hash, content_text, first_visited, last_visited
FROM pages
WHERE url = $1`

	var p sentry.Page
	err := a.conn.QueryRow(ctx, query, url).Scan(
		&p.URL,
		&p.Title,
		&p.ContentHash,
		&p.ContentText,
		&p.FirstVisited,
		&p.LastVisited,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return sentry.Page{}, false, nil
	}
	if err != nil {
		return sentry.Page{}, false, &sentry.StorageError{Op: "get page", Err: err}
	}
	return p, true, nil
}

// UpsertPage creates the page on first visit and overwrites title, hash, and
// text afterwards. first_visited is set once; last_visited always advances.
// Safe to call repeatedly with identical arguments.
func (a *Archive) UpsertPage(ctx context.Context, url, title, contentHash, contentText string) error {
	const query = `
INSERT INTO pages (url, title, content_hash, content_text, first_visited, last_visited)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	content_hash = EXCLUDED.content_hash,
	content_text = EXCLUDED.content_text,
	last_visited = EXCLUDED.last_visited`

	now := a.clock.Now()
	if _, err := a.conn.Exec(ctx, query, url, title, contentHash, contentText, now); err != nil {
		return &sentry.StorageError{Op: "upsert page", Err: err}
	}
	return nil
}

// AddLink inserts the directed edge if not already present. Duplicate calls
// are no-ops on the graph's shape.
func (a *Archive) AddLink(ctx context.Context, sourceURL, targetURL string) error {
	const query = `
INSERT INTO links (from_url, to_url)
VALUES ($1, $2)
ON CONFLICT (from_url, to_url) DO NOTHING`

	if _, err := a.conn.Exec(ctx, query, sourceURL, targetURL); err != nil {
		return &sentry.StorageError{Op: "add link", Err: err}
	}
	return nil
}

// GetContentByHash retrieves a prior revision's text by its content hash.
func (a *Archive) GetContentByHash(ctx context.Context, hash string) (string, bool, error) {
	const query = `
SELECT content_text
FROM pages
WHERE content_hash = $1
LIMIT 1`

	var text string
	err := a.conn.QueryRow(ctx, query, hash).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &sentry.StorageError{Op: "get content by hash", Err: err}
	}
	return text, true, nil
}
