// Package cache provides ResultCache implementations backed by Redis and
// by process memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// keyPrefix namespaces swarm entries inside a shared Redis instance.
const keyPrefix = "swarm:result:"

// RedisCache stores serialized SwarmResults in Redis with per-entry TTLs.
// Read-path backend failures are logged and reported as misses so a Redis
// outage degrades to slower analyses rather than failed ones.
type RedisCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ ports.ResultCache = (*RedisCache)(nil)

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client redis.UniversalClient, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, logger: logger}
}

// Get returns the cached result for the event. Backend errors and corrupt
// payloads are treated as misses.
func (c *RedisCache) Get(ctx context.Context, eventID string) (*domain.SwarmResult, bool, error) {
	payload, err := c.client.Get(ctx, keyPrefix+eventID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		c.logger.Warn("cache read failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, false, nil
	}

	var result domain.SwarmResult
	if err := json.Unmarshal(payload, &result); err != nil {
		c.logger.Warn("corrupt cache entry evicted", zap.String("event_id", eventID), zap.Error(err))
		_ = c.client.Del(ctx, keyPrefix+eventID).Err()
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores the result with the given TTL.
func (c *RedisCache) Set(ctx context.Context, eventID string, result *domain.SwarmResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+eventID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Delete evicts the entry for the event.
func (c *RedisCache) Delete(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, keyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
