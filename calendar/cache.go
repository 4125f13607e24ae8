package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-bakery/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a byte cache with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on a Redis server.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedAggregator serves month results from a cache and falls through to the
// store-backed aggregator on a miss. Fallback results are never cached and cache
// failures only cost a store round trip.
type CachedAggregator struct {
	next   Aggregator
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedAggregator(next Aggregator, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedAggregator {
	return &CachedAggregator{next: next, cache: cache, ttl: ttl, logger: logger}
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("calendar:%04d-%02d", year, month)
}

func (c *CachedAggregator) Aggregate(ctx context.Context, year int, month time.Month) (*MonthResult, error) {
	key := monthKey(year, month)

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("calendar cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached MonthResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		c.logger.Warn("calendar cache entry unreadable", zap.String("key", key))
	}

	result, err := c.next.Aggregate(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if result.Source != SourceStrict {
		return result, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// Invalidate drops the cached month containing day (YYYY-MM-DD).
func (c *CachedAggregator) Invalidate(ctx context.Context, day string) {
	t, err := time.Parse(utils.DayLayout, day)
	if err != nil {
		return
	}
	key := monthKey(t.Year(), t.Month())
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("calendar cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
