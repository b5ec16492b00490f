package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_research/pkg/core/report"
	"valuation_research/pkg/core/search"
)

func TestCacheKey_Normalizes(t *testing.T) {
	assert.Equal(t, CacheKey("Tesla  stock price"), CacheKey("  tesla stock\tPRICE "))
	assert.NotEqual(t, CacheKey("tesla"), CacheKey("apple"))
	assert.Len(t, CacheKey("x"), 64)
}

func TestSearchCache_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewSearchCache(nil, dir)
	require.NoError(t, err)

	ctx := context.Background()
	_, ok, err := cache.Get(ctx, "NVDA price", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	want := search.Result{Query: "NVDA price", Content: "$180", Citations: []string{"https://a"}, Status: search.StatusSuccess}
	require.NoError(t, cache.Put(ctx, "NVDA price", want))

	got, ok, err := cache.Get(ctx, "nvda  PRICE", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	assert.Len(t, files, 1)
}

func TestSearchCache_Expiry(t *testing.T) {
	cache, err := NewSearchCache(nil, t.TempDir())
	require.NoError(t, err)

	start := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return start }
	require.NoError(t, cache.Put(context.Background(), "q", search.Result{Query: "q", Status: search.StatusSuccess}))

	cache.now = func() time.Time { return start.Add(7 * time.Hour) }
	_, ok, err := cache.Get(context.Background(), "q", 6*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cache.Get(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSearchCache_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewSearchCache(nil, dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CacheKey("q")+".json"), []byte("{"), 0o644))

	_, ok, err := cache.Get(context.Background(), "q", time.Hour)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestReportRepo_NoPool(t *testing.T) {
	repo := NewReportRepo(nil)
	_, err := repo.Save(context.Background(), StoredReport{Symbol: "AAPL"})
	assert.ErrorContains(t, err, "database pool not initialized")

	_, err = repo.LatestBySymbol(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestDecodeStored(t *testing.T) {
	var rep StoredReport
	require.NoError(t, decodeStored(&rep, []byte(`{"fundamentalAnalysis":"F","businessSegments":"B","growthCatalysts":"G","valuationAnalysis":"V"}`), []byte(`["https://a"]`)))
	require.NotNil(t, rep.Sections)
	assert.Equal(t, report.Sections{FundamentalAnalysis: "F", BusinessSegments: "B", GrowthCatalysts: "G", ValuationAnalysis: "V"}, *rep.Sections)
	assert.Equal(t, []string{"https://a"}, rep.Citations)

	rep = StoredReport{}
	require.NoError(t, decodeStored(&rep, []byte("null"), nil))
	assert.Nil(t, rep.Sections)
	assert.Equal(t, []string{}, rep.Citations)
}

func TestInitDB_EmptyDSN(t *testing.T) {
	assert.Error(t, InitDB(context.Background(), ""))
}
