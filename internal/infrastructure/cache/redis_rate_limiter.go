package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and sets its expiry on
// first use, in one round trip.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisRateLimiter counts requests per key in fixed windows shared by every
// instance
type RedisRateLimiter struct {
	client    redis.UniversalClient
	limit     int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewRedisRateLimiter allows limit requests per key per window
func NewRedisRateLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: "qualee:ratelimit:",
		now:       time.Now,
	}
}

// Allow reports whether the request fits in the current window and how many
// requests remain in it
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	bucket := l.now().UnixMilli() / l.window.Milliseconds()
	redisKey := l.keyPrefix + key + ":" + strconv.FormatInt(bucket, 10)

	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, nil
}

// Limit returns the configured requests per window
func (l *RedisRateLimiter) Limit() int {
	return l.limit
}
