package emails

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedupTTL bounds how long emission markers live. Provider callbacks for a
// message stop arriving long before this window closes.
const dedupTTL = 45 * 24 * time.Hour

// RedisDeduper is an EventDeduper shared across instances, built on SETNX
// so the first writer wins regardless of which node handles the callback.
type RedisDeduper struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisDeduper creates a Redis-backed deduper. Keys are namespaced under
// the given prefix; pass "" for the default.
func NewRedisDeduper(client redis.UniversalClient, prefix string) *RedisDeduper {
	if prefix == "" {
		prefix = "emails:notified"
	}
	return &RedisDeduper{client: client, prefix: prefix}
}

func (d *RedisDeduper) FirstEmission(ctx context.Context, messageID, kind string) (bool, error) {
	key := d.prefix + ":" + messageID + ":" + kind
	return d.client.SetNX(ctx, key, 1, dedupTTL).Result()
}
