package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window Limiter shared across instances. Each key
// counts requests in the current window with INCR; the first increment sets
// the window expiry.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedisLimiter creates a Redis-backed limiter. Panics on a non-positive
// budget, which is always a configuration mistake.
func NewRedisLimiter(client redis.UniversalClient, prefix string, cfg Config) *RedisLimiter {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		panic(fmt.Sprintf("ratelimit: invalid config %+v", cfg))
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, cfg: cfg}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := l.prefix + ":" + key

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.cfg.Window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	n := int(count.Val())
	res := Result{
		Allowed:   n <= l.cfg.Requests,
		Limit:     l.cfg.Requests,
		Remaining: max(l.cfg.Requests-n, 0),
	}
	if !res.Allowed {
		res.RetryAfter = ttl.Val()
	}
	return res, nil
}
