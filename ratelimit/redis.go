package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces limiter keys in Redis.
const KeyPrefix = "ratelimit:"

// fixedWindowScript increments the counter and starts the window on the first hit.
// A key left without a TTL is repaired so it cannot block forever.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisFixedWindow shares fixed-window counters between processes through Redis.
type RedisFixedWindow struct {
	rdb redis.Scripter
	now func() time.Time
}

// NewRedisFixedWindow builds a limiter on top of an existing client.
func NewRedisFixedWindow(rdb redis.Scripter) *RedisFixedWindow {
	return &RedisFixedWindow{rdb: rdb, now: time.Now}
}

// Allow implements Limiter. Redis failures are returned to the caller untouched.
func (r *RedisFixedWindow) Allow(ctx context.Context, identifier string, window time.Duration, maxRequests int) (Result, error) {
	now := r.now()
	if window <= 0 || maxRequests <= 0 {
		return Result{Allowed: false, Remaining: 0, ResetTime: now}, nil
	}

	ms := window.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	vals, err := fixedWindowScript.Run(ctx, r.rdb, []string{KeyPrefix + identifier}, ms).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= maxRequests,
		Remaining: remaining,
		ResetTime: now.Add(ttl),
	}, nil
}
