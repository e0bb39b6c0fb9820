package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 有序集合保存窗口内每次放行的时间戳（毫秒）。
// 返回 {allowed, remaining, retry_after_ms}。
var redisSlidingScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
if count < limit then
  redis.call("ZADD", key, now, ARGV[4])
  redis.call("PEXPIRE", key, window)
  return {1, limit - count - 1, 0}
end
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local retry = window
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)

// RedisLimiter implements a sliding-window rate limiter backed by Redis,
// shared by every API instance.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client redis.Scripter, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

// Allow records one attempt for key and reports whether it fits in the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || window <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	nowMs := now.UnixMilli()
	res, err := redisSlidingScript.Run(ctx, l.client,
		[]string{l.buildKey(key)},
		nowMs, window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit redis: %w", err)
	}
	if len(res) != 3 {
		return Result{}, errors.New("rate limit redis: unexpected response")
	}

	if res[0] == 1 {
		return Result{
			Allowed:   true,
			Remaining: int(res[1]),
			Reset:     now.Add(window).UTC(),
		}, nil
	}
	retry := time.Duration(res[2]) * time.Millisecond
	if retry <= 0 {
		retry = time.Millisecond
	}
	return Result{
		Allowed:    false,
		Reset:      now.Add(retry).UTC(),
		RetryAfter: retry,
	}, nil
}

func (l *RedisLimiter) buildKey(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}
