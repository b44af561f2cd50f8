package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the query cache.
const DefaultPrefix = "incident-atlas:analytics"

const generationKey = ":generation"

// QueryCache is a read-through cache for aggregation results. Entries are
// keyed under a load generation, so bumping the generation after a load
// makes every earlier entry unreachable at once; they expire via TTL.
//
// A caller that misses passes the generation returned by Get back to Set.
// A result computed before a load therefore lands in the old generation
// even when Set runs after Invalidate.
type QueryCache interface {
	// Get decodes the cached value for key into dest. It returns the
	// generation it looked in and whether the value was present.
	Get(ctx context.Context, key string, dest any) (gen int64, found bool, err error)

	// Set stores value under key for generation gen.
	Set(ctx context.Context, gen int64, key string, value any) error

	// Invalidate starts a new generation and returns it.
	Invalidate(ctx context.Context) (int64, error)
}

type redisQueryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ QueryCache = (*redisQueryCache)(nil)

// NewRedisQueryCache wraps an existing client. An empty prefix uses
// DefaultPrefix; a non-positive ttl stores entries without expiry.
func NewRedisQueryCache(client *redis.Client, prefix string, ttl time.Duration) QueryCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &redisQueryCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisQueryCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.prefix+generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (c *redisQueryCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:g%d:%s", c.prefix, gen, key)
}

func (c *redisQueryCache) Get(ctx context.Context, key string, dest any) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, err
	}

	data, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return gen, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return gen, true, nil
}

func (c *redisQueryCache) Set(ctx context.Context, gen int64, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.entryKey(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

func (c *redisQueryCache) Invalidate(ctx context.Context) (int64, error) {
	gen, err := c.client.Incr(ctx, c.prefix+generationKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return gen, nil
}
