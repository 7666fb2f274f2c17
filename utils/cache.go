package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL = time.Hour
	cacheOpTimeout  = 2 * time.Second
	scanBatch       = 500

	// CachePrefixPostList keys public post list pages and the search index.
	CachePrefixPostList = "cache:posts:list:"
	// CachePrefixPostDetail keys public post detail by slug.
	CachePrefixPostDetail = "cache:post:detail:"
	// CachePrefixFeed keys the rendered RSS feed and sitemap.
	CachePrefixFeed = "cache:feed:"
)

// withCache runs fn against the shared client with a bounded context. It reports false
// when caching is disabled.
func withCache(timeout time.Duration, fn func(ctx context.Context, rc *redis.Client)) bool {
	rc := GetRedis()
	if rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	fn(ctx, rc)
	return true
}

// CacheGetBytes returns the cached value for key. Misses and errors both report false.
func CacheGetBytes(key string) (b []byte, ok bool) {
	withCache(cacheOpTimeout, func(ctx context.Context, rc *redis.Client) {
		v, err := rc.Get(ctx, key).Bytes()
		if err != nil {
			if err != redis.Nil {
				Logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
			}
			return
		}
		b, ok = v, true
	})
	return b, ok
}

// CacheSetBytes stores b under key. A non-positive ttl means defaultCacheTTL.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	withCache(cacheOpTimeout, func(ctx context.Context, rc *redis.Client) {
		if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
			Logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	})
}

// CacheSuccess stores payload inside the success envelope so a hit can be written back as-is.
func CacheSuccess(key string, payload interface{}, ttl time.Duration) {
	b, err := json.Marshal(JSONResponse{Code: 0, Message: "success", Data: payload})
	if err != nil {
		Logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	CacheSetBytes(key, b, ttl)
}

// InvalidateByPrefix unlinks every key under prefix.
func InvalidateByPrefix(prefix string) {
	withCache(3*cacheOpTimeout, func(ctx context.Context, rc *redis.Client) {
		batch := make([]string, 0, scanBatch)
		flush := func() {
			if len(batch) == 0 {
				return
			}
			if err := rc.Unlink(ctx, batch...).Err(); err != nil {
				Logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
			}
			batch = batch[:0]
		}
		iter := rc.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == scanBatch {
				flush()
			}
		}
		flush()
		if err := iter.Err(); err != nil {
			Logger.Warn("cache scan failed", zap.String("prefix", prefix), zap.Error(err))
		}
	})
}

// InvalidatePostCaches drops every cached public view derived from posts.
func InvalidatePostCaches() {
	for _, prefix := range []string{CachePrefixPostList, CachePrefixPostDetail, CachePrefixFeed} {
		InvalidateByPrefix(prefix)
	}
}
