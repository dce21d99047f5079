package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedFetcher_ServesFromCache(t *testing.T) {
	base := &stubFetcher{result: &Result{URL: "https://a.example/1", HTML: "<p>hi</p>", StatusCode: 200}}
	f := NewCachedFetcher(base, NewMemoryCache(), time.Hour, nil)

	first, err := f.Fetch(context.Background(), "https://a.example/1")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.Fetch(context.Background(), "https://a.example/1")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "<p>hi</p>", second.HTML)
	assert.Equal(t, 1, base.calls)
}

func TestCachedFetcher_DoesNotCacheFailures(t *testing.T) {
	base := &stubFetcher{result: &Result{StatusCode: 404}, err: &Error{URL: "u", Message: "HTTP status 404"}}
	cache := NewMemoryCache()
	f := NewCachedFetcher(base, cache, time.Hour, nil)

	_, err := f.Fetch(context.Background(), "https://a.example/missing")
	require.Error(t, err)
	_, ok, _ := cache.Get(context.Background(), "https://a.example/missing")
	assert.False(t, ok)
}

func TestMemoryCache_Expires(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(context.Background(), "u", &Result{HTML: "x"}, time.Minute))
	_, ok, _ := cache.Get(context.Background(), "u")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = cache.Get(context.Background(), "u")
	assert.False(t, ok)
}

func TestPageKey(t *testing.T) {
	a := PageKey("https://a.example/1")
	assert.Equal(t, a, PageKey("https://a.example/1"))
	assert.NotEqual(t, a, PageKey("https://a.example/2"))
	assert.Contains(t, a, "jobmatcher:page:")
}
