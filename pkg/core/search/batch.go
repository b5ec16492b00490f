package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchSearch runs queries in consecutive chunks of maxConcurrent. Every
// query in a chunk runs concurrently and the chunk is joined before the next
// one starts, so wall time is the sum of each chunk's slowest query.
// results[i] always answers queries[i].
//
// Per-query failures stay inside their Result. An error is returned only
// when the batch itself breaks: a searcher panics, or ctx is done before a
// chunk starts.
func BatchSearch(ctx context.Context, s Searcher, queries []string, maxConcurrent int) ([]Result, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	results := make([]Result, len(queries))
	for start := 0; start < len(queries); start += maxConcurrent {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch stopped before query %d: %w", start+1, err)
		}

		end := min(start+maxConcurrent, len(queries))

		// Plain Group: one failing query must not cancel its siblings.
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("search panicked on query %d: %v", i+1, r)
					}
				}()
				results[i] = s.Search(ctx, queries[i], Options{})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}
