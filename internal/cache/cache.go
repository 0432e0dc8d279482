// -------------------------------------------------------------------------------
// Cache - Signed URL Cache
//
// Project: KCloud / Author: Alex Freidah
//
// Redis-backed cache for signed download URLs, keyed by object key. Strictly
// best-effort: a Redis failure degrades to signing on every request, never to
// a failed API call. Entries always expire before the URL signature does.
// -------------------------------------------------------------------------------

package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nestorara/kcloud-music-api/internal/config"
	"github.com/nestorara/kcloud-music-api/internal/telemetry"
)

const keyPrefix = "songsapi:url:"

// URLCache caches signed URLs in Redis.
type URLCache struct {
	client *redis.Client
}

// New connects to Redis using the cache configuration. The connection is
// verified with a bounded ping; a failure here is returned so startup can
// decide whether to continue without caching.
func New(ctx context.Context, cfg config.CacheConfig) (*URLCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		return nil, err
	}
	return &URLCache{client: client}, nil
}

// Get returns the cached URL for an object key, or ok=false on a miss or a
// Redis failure.
func (c *URLCache) Get(ctx context.Context, key string) (string, bool) {
	url, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		telemetry.URLCacheTotal.WithLabelValues("error").Inc()
		slog.Warn("url cache read failed", "key", key, "error", err)
		return "", false
	}
	return url, true
}

// Set stores a URL with the given TTL. Failures are logged and dropped.
func (c *URLCache) Set(ctx context.Context, key, url string, ttl time.Duration) {
	if err := c.client.Set(ctx, keyPrefix+key, url, ttl).Err(); err != nil {
		telemetry.URLCacheTotal.WithLabelValues("error").Inc()
		slog.Warn("url cache write failed", "key", key, "error", err)
	}
}

// Close releases the Redis connection.
func (c *URLCache) Close() error {
	return c.client.Close()
}
