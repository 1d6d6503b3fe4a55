package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: memory in front of an optional Redis.
// Without Redis it behaves as a plain memory cache.
type LayeredCache struct {
	memCache   *MemoryCache
	redisCache *RedisCache
}

// NewLayeredCache creates a layered cache. redisCache may be nil.
func NewLayeredCache(redisCache *RedisCache, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{
		memCache:   NewMemoryCache(opts...),
		redisCache: redisCache,
	}
}

func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := lc.memCache.Get(ctx, key); err == nil {
		return v, nil
	}
	if lc.redisCache == nil {
		return nil, ErrCacheMiss
	}
	v, err := lc.redisCache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = lc.memCache.Set(ctx, key, v, 0)
	return v, nil
}

// Set writes through: Redis first, then memory.
func (lc *LayeredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if lc.redisCache != nil {
		if err := lc.redisCache.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return lc.memCache.Set(ctx, key, value, expiration)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Delete(ctx, keys...)
}

// TryLock uses Redis when present so the lock is shared across processes.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if lc.redisCache != nil {
		return lc.redisCache.TryLock(ctx, key, ttl)
	}
	return lc.memCache.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	if lc.redisCache != nil {
		return lc.redisCache.Unlock(ctx, key)
	}
	return lc.memCache.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	return lc.memCache.Close()
}
