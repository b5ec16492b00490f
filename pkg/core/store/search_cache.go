package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"valuation_research/pkg/core/search"
)

// DefaultSearchCacheDir is used when neither a pool nor a directory is given.
var DefaultSearchCacheDir = filepath.Join(".cache", "search")

// SearchCache is a hybrid vault for search results: the search_cache table
// when a pool is available, JSON files under a directory otherwise.
type SearchCache struct {
	pool    *pgxpool.Pool
	fileDir string
	now     func() time.Time
}

var _ search.Cache = (*SearchCache)(nil)

// cacheEntry is the on-disk form of one cached result.
type cacheEntry struct {
	Query    string        `json:"query"`
	Result   search.Result `json:"result"`
	CachedAt time.Time     `json:"cached_at"`
}

// NewSearchCache creates a cache backed by pool, or by files in dir when
// pool is nil.
func NewSearchCache(pool *pgxpool.Pool, dir string) (*SearchCache, error) {
	if pool == nil && dir == "" {
		dir = DefaultSearchCacheDir
	}
	if pool == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	return &SearchCache{pool: pool, fileDir: dir, now: time.Now}, nil
}

// CacheKey hashes the normalized query: case and runs of whitespace are ignored.
func CacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for query if it is younger than maxAge.
// A non-positive maxAge disables expiry.
func (c *SearchCache) Get(ctx context.Context, query string, maxAge time.Duration) (search.Result, bool, error) {
	entry, ok, err := c.load(ctx, CacheKey(query))
	if err != nil || !ok {
		return search.Result{}, false, err
	}
	if maxAge > 0 && c.now().Sub(entry.CachedAt) > maxAge {
		return search.Result{}, false, nil
	}
	return entry.Result, true, nil
}

// Put stores r under query, replacing any previous entry.
func (c *SearchCache) Put(ctx context.Context, query string, r search.Result) error {
	entry := cacheEntry{Query: query, Result: r, CachedAt: c.now()}
	key := CacheKey(query)

	if c.pool != nil {
		resultJSON, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = c.pool.Exec(ctx, `
			INSERT INTO search_cache (query_hash, query, result, cached_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (query_hash)
			DO UPDATE SET query = EXCLUDED.query, result = EXCLUDED.result, cached_at = EXCLUDED.cached_at
		`, key, entry.Query, resultJSON, entry.CachedAt)
		if err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to save to file cache: %w", err)
	}
	return nil
}

func (c *SearchCache) load(ctx context.Context, key string) (cacheEntry, bool, error) {
	var entry cacheEntry

	if c.pool != nil {
		var resultJSON []byte
		err := c.pool.QueryRow(ctx, `SELECT query, result, cached_at FROM search_cache WHERE query_hash = $1`, key).
			Scan(&entry.Query, &resultJSON, &entry.CachedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return entry, false, nil
		}
		if err != nil {
			return entry, false, fmt.Errorf("failed to read db cache: %w", err)
		}
		if err := json.Unmarshal(resultJSON, &entry.Result); err != nil {
			return entry, false, fmt.Errorf("failed to unmarshal db cached result: %w", err)
		}
		return entry, true, nil
	}

	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, fmt.Errorf("failed to read cache file: %w", err)
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false, fmt.Errorf("failed to unmarshal cache file: %w", err)
	}
	return entry, true, nil
}

func (c *SearchCache) path(key string) string {
	return filepath.Join(c.fileDir, key+".json")
}
