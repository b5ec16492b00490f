// Package search runs web-research queries against search-augmented models.
//
// Every Searcher reports failures through Result; a Go error is reserved for
// batch-level problems in BatchSearch.
package search

import "context"

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 2000
	// DefaultMaxConcurrent is the chunk size used when none is configured.
	DefaultMaxConcurrent = 5
)

// Result is the outcome of one query. Content is meaningful on success,
// Error on failure. Citations keep source order and may repeat.
type Result struct {
	Query     string   `json:"query"`
	Content   string   `json:"content,omitempty"`
	Citations []string `json:"citations"`
	Status    Status   `json:"status"`
	Error     string   `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Status == StatusSuccess }

func errorResult(query, msg string) Result {
	return Result{Query: query, Citations: []string{}, Status: StatusError, Error: msg}
}

// Options tune a single search. Zero values select the defaults.
type Options struct {
	Temperature *float64
	MaxTokens   int
}

func (o Options) temperature() float64 {
	if o.Temperature == nil {
		return DefaultTemperature
	}
	return *o.Temperature
}

func (o Options) maxTokens() int {
	if o.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return o.MaxTokens
}

// Searcher executes one research query.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) Result
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, opts Options) Result

func (f SearcherFunc) Search(ctx context.Context, query string, opts Options) Result {
	return f(ctx, query, opts)
}

func preview(query string) string {
	r := []rune(query)
	if len(r) > 50 {
		r = r[:50]
	}
	return string(r) + "..."
}
