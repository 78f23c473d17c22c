package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmguard-server/internal/domain"
)

const explanationKeyPrefix = "explanation:"

// ExplanationCache wraps a Redis client with caching for generated
// explanations. Explanation text is deterministic per profile, so cache hits
// save a provider round trip without changing report content.
type ExplanationCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewExplanationCache creates a Redis-backed explanation cache.
func NewExplanationCache(config domain.CacheConfig) (*ExplanationCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ExplanationCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// CachedExplanation wraps a stored explanation with cache metadata.
type CachedExplanation struct {
	Data      *domain.Explanation `json:"data"`
	CachedAt  time.Time           `json:"cached_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Get retrieves a cached explanation for the profile.
func (c *ExplanationCache) Get(ctx context.Context, req *domain.ExplanationRequest) (*domain.Explanation, bool, error) {
	key := explanationCacheKey(req)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get explanation cache: %w", err)
	}

	var cached CachedExplanation
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	// Check if expired
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set caches an explanation for the profile.
func (c *ExplanationCache) Set(ctx context.Context, req *domain.ExplanationRequest, explanation *domain.Explanation, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	key := explanationCacheKey(req)

	cached := CachedExplanation{
		Data:      explanation,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal explanation cache data: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, ttl).Err()
}

// Invalidate removes the cached explanation for a specific profile.
func (c *ExplanationCache) Invalidate(ctx context.Context, req *domain.ExplanationRequest) error {
	return c.redis.Del(ctx, explanationCacheKey(req)).Err()
}

// InvalidateAll removes every cached explanation, e.g. after a reference
// data update changes guideline text.
func (c *ExplanationCache) InvalidateAll(ctx context.Context) error {
	keys, err := c.redis.Keys(ctx, explanationKeyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("failed to list explanation cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	return c.redis.Del(ctx, keys...).Err()
}

// Stats returns cache statistics.
func (c *ExplanationCache) Stats(ctx context.Context) (map[string]interface{}, error) {
	info, err := c.redis.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	keyspace, err := c.redis.Info(ctx, "keyspace").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis keyspace: %w", err)
	}

	stats := map[string]interface{}{
		"memory_info": info,
		"keyspace":    keyspace,
		"client_info": map[string]interface{}{
			"pool_stats": c.redis.PoolStats(),
		},
	}

	return stats, nil
}

// Ping checks if the Redis connection is alive.
func (c *ExplanationCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *ExplanationCache) Close() error {
	return c.redis.Close()
}

// explanationCacheKey derives the Redis key for a profile.
func explanationCacheKey(req *domain.ExplanationRequest) string {
	return explanationKeyPrefix + RequestKey(req)
}
