package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"placestatus/internal/metrics"
)

// statusCache stores evaluated statuses in Redis, keyed by place and minute.
type statusCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func newStatusCache(rdb *redis.Client, ttl time.Duration) *statusCache {
	return &statusCache{redis: rdb, ttl: ttl}
}

func (c *statusCache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

func statusKey(placeID int64, now time.Time) string {
	return fmt.Sprintf("%s%s", placeKeyPrefix(placeID), now.Format("200601021504"))
}

func placeKeyPrefix(placeID int64) string {
	return fmt.Sprintf("placestatus:status:%d:", placeID)
}

func (c *statusCache) get(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		metrics.IncCache(false)
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		metrics.IncCache(false)
		return false
	}
	metrics.IncCache(true)
	return true
}

func (c *statusCache) set(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

// invalidate drops every cached status of a place and returns how many keys were removed.
func (c *statusCache) invalidate(ctx context.Context, placeID int64) (int, error) {
	if !c.enabled() {
		return 0, nil
	}

	var keys []string
	iter := c.redis.Scan(ctx, 0, placeKeyPrefix(placeID)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan cached statuses: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("delete cached statuses: %w", err)
	}
	return len(keys), nil
}
