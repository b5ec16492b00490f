package search

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Cache stores successful results by query. Implementations decide how
// entries are keyed and persisted; expiry is passed on every read.
type Cache interface {
	Get(ctx context.Context, query string, maxAge time.Duration) (Result, bool, error)
	Put(ctx context.Context, query string, r Result) error
}

// CachedSearcher serves fresh cache hits and stores new successes.
// Failed results are never cached. Cache errors degrade to a live search.
type CachedSearcher struct {
	next   Searcher
	cache  Cache
	maxAge time.Duration
	logger *zap.Logger
}

var _ Searcher = (*CachedSearcher)(nil)

func NewCachedSearcher(next Searcher, cache Cache, maxAge time.Duration, logger *zap.Logger) *CachedSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSearcher{next: next, cache: cache, maxAge: maxAge, logger: logger}
}

func (c *CachedSearcher) Search(ctx context.Context, query string, opts Options) Result {
	if r, ok, err := c.cache.Get(ctx, query, c.maxAge); err != nil {
		c.logger.Warn("[CACHE] read failed", zap.String("query", preview(query)), zap.Error(err))
	} else if ok {
		c.logger.Debug("[CACHE] hit", zap.String("query", preview(query)))
		r.Query = query
		return r
	}

	r := c.next.Search(ctx, query, opts)
	if r.OK() {
		if err := c.cache.Put(ctx, query, r); err != nil {
			c.logger.Warn("[CACHE] write failed", zap.String("query", preview(query)), zap.Error(err))
		}
	}
	return r
}
