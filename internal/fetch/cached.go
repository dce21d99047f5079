package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultPageCacheTTL is how long a fetched detail page stays cached.
const DefaultPageCacheTTL = 24 * time.Hour

const pageKeyPrefix = "jobmatcher:page:"

// PageCache stores fetched pages by URL.
type PageCache interface {
	Get(ctx context.Context, url string) (*Result, bool, error)
	Set(ctx context.Context, url string, page *Result, ttl time.Duration) error
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisCache is a PageCache backed by Redis.
type RedisCache struct {
	rdb redis.Cmdable
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(rdb redis.Cmdable) *RedisCache {
	return &RedisCache{rdb: rdb}
}

type cachedPage struct {
	URL         string `json:"url"`
	HTML        string `json:"html"`
	ContentType string `json:"content_type"`
	StatusCode  int    `json:"status_code"`
	Rendered    bool   `json:"rendered"`
}

// PageKey returns the cache key for a URL.
func PageKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return pageKeyPrefix + hex.EncodeToString(sum[:])
}

// Get implements PageCache.
func (c *RedisCache) Get(ctx context.Context, url string) (*Result, bool, error) {
	raw, err := c.rdb.Get(ctx, PageKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var page cachedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false, fmt.Errorf("decode cached page: %w", err)
	}
	return &Result{
		URL:         page.URL,
		HTML:        page.HTML,
		ContentType: page.ContentType,
		StatusCode:  page.StatusCode,
		Rendered:    page.Rendered,
		FromCache:   true,
	}, true, nil
}

// Set implements PageCache.
func (c *RedisCache) Set(ctx context.Context, url string, page *Result, ttl time.Duration) error {
	raw, err := json.Marshal(cachedPage{
		URL:         page.URL,
		HTML:        page.HTML,
		ContentType: page.ContentType,
		StatusCode:  page.StatusCode,
		Rendered:    page.Rendered,
	})
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	if err := c.rdb.Set(ctx, PageKey(url), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// MemoryCache is an in-process PageCache, used when Redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	page    Result
	expires time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements PageCache.
func (c *MemoryCache) Get(_ context.Context, url string) (*Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		delete(c.entries, url)
		return nil, false, nil
	}
	page := e.page
	page.FromCache = true
	return &page, true, nil
}

// Set implements PageCache.
func (c *MemoryCache) Set(_ context.Context, url string, page *Result, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = memoryEntry{page: *page, expires: c.now().Add(ttl)}
	return nil
}

// CachedFetcher serves pages from a PageCache and fetches on a miss.
// Cache failures degrade to a direct fetch.
type CachedFetcher struct {
	base   PageFetcher
	cache  PageCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedFetcher wraps base with cache.
func NewCachedFetcher(base PageFetcher, cache PageCache, ttl time.Duration, logger *zap.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultPageCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{base: base, cache: cache, ttl: ttl, logger: logger}
}

// Fetch implements PageFetcher. Only successful pages are cached.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	if cached, ok, err := f.cache.Get(ctx, urlStr); err != nil {
		f.logger.Warn("page cache read failed", zap.String("url", urlStr), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	result, err := f.base.Fetch(ctx, urlStr)
	if err != nil {
		return result, err
	}
	if err := f.cache.Set(ctx, urlStr, result, f.ttl); err != nil {
		f.logger.Warn("page cache write failed", zap.String("url", urlStr), zap.Error(err))
	}
	return result, nil
}
