// Package ratelimit provides sliding-window rate limiters.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolioSaaS/internal/config"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter provides rate limit checks over a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// New 根据配置选择限流后端。
func New(cfg config.RateLimitConfig, client redis.Scripter) (Limiter, error) {
	switch cfg.Backend {
	case "", "redis":
		if client == nil {
			return nil, fmt.Errorf("redis rate limiter requires a redis client")
		}
		return NewRedisLimiter(client, cfg.Prefix), nil
	case "memory":
		return NewMemoryLimiter(), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", cfg.Backend)
	}
}
