package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:submit:"

// RedisLimiter is a fixed-window limiter shared by every server instance that
// points at the same Redis/Dragonfly.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	period time.Duration
}

// NewRedisLimiter allows limit events per key in each period.
func NewRedisLimiter(client redis.Cmdable, limit int, period time.Duration) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisLimiter{client: client, limit: limit, period: period}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("rate limit key is required")
	}
	if l.limit <= 0 || l.period <= 0 {
		return true, nil
	}

	k := keyPrefix + key
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		// NX keeps the window anchored at the first event.
		pipe.ExpireNX(ctx, k, l.period)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(l.limit), nil
}
