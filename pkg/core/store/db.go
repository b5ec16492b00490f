// Package store persists generated reports and cached search results in
// Postgres, with a file-system fallback for the cache when no database is
// configured.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool    *pgxpool.Pool
	once    sync.Once
	initErr error
)

const schema = `
CREATE TABLE IF NOT EXISTS valuation_reports (
	id           UUID PRIMARY KEY,
	user_id      TEXT,
	symbol       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	report_type  TEXT,
	report_json  JSONB,
	markdown     TEXT NOT NULL,
	citations    JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS valuation_reports_symbol_idx ON valuation_reports (upper(symbol), created_at DESC);

CREATE TABLE IF NOT EXISTS search_cache (
	query_hash TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	result     JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL
);
`

// InitDB initializes the database connection pool from dsn and makes sure
// the tables exist.
// Only the first call does any work; later calls return its error.
func InitDB(ctx context.Context, dsn string) error {
	once.Do(func() {
		initErr = connect(ctx, dsn)
	})
	return initErr
}

func connect(ctx context.Context, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if _, err := p.Exec(ctx, schema); err != nil {
		p.Close()
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	pool = p
	return nil
}

// GetPool returns the database connection pool, or nil before InitDB succeeds.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
