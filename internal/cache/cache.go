// Package cache provides the Redis-backed memoization layer Reflect's
// fading scan consults before recomputing a memory's decay score.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/memoryctl/pkg/component/redis"
)

// DecayCache implements engine.DecayCache against a Redis client.
type DecayCache struct {
	client *redis.Client
	prefix string
}

// New wires a DecayCache to the given Redis client. prefix namespaces keys
// so the cache can share a Redis instance with other components.
func New(client *redis.Client, prefix string) *DecayCache {
	if prefix == "" {
		prefix = "memoryctl:decay:"
	}
	return &DecayCache{client: client, prefix: prefix}
}

func (c *DecayCache) key(memoryID string) string {
	return c.prefix + memoryID
}

// Get returns the memoized decay score for a memory, if still cached.
// A cache miss or error is reported as ok==false: the caller recomputes.
func (c *DecayCache) Get(ctx context.Context, memoryID string) (float64, bool) {
	raw, err := c.client.Client().Get(ctx, c.key(memoryID)).Result()
	if err != nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

// Set memoizes a memory's decay score for ttl. A write failure is logged
// and otherwise ignored: the cache is an optimization, not a dependency.
func (c *DecayCache) Set(ctx context.Context, memoryID string, score float64, ttl time.Duration) {
	err := c.client.Client().Set(ctx, c.key(memoryID), strconv.FormatFloat(score, 'f', -1, 64), ttl).Err()
	if err != nil {
		logger.Warnw("decay cache write failed", "error", err.Error(), "memory_id", memoryID)
	}
}
