package ratelimit

import (
	"context"
	"sync"
	"time"
)

// 两次清理过期 key 之间的最短间隔。
const memorySweepInterval = time.Minute

type memoryBucket struct {
	events []time.Time
	window time.Duration
}

// MemoryLimiter implements the same sliding window in process memory.
// 仅适用于单实例部署与测试。
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*memoryBucket
	lastSweep time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*memoryBucket),
	}
}

// Allow records one attempt for key and reports whether it fits in the window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || window <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &memoryBucket{}
		l.buckets[key] = b
	}
	b.window = window

	kept := b.events[:0]
	for _, ts := range b.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.events = kept

	if len(kept) >= limit {
		retry := kept[0].Add(window).Sub(now)
		if retry <= 0 {
			retry = time.Millisecond
		}
		return Result{Allowed: false, Reset: now.Add(retry).UTC(), RetryAfter: retry}, nil
	}

	b.events = append(kept, now)
	return Result{Allowed: true, Remaining: limit - len(b.events), Reset: now.Add(window).UTC()}, nil
}

// sweep 删除窗口内已无记录的 key，调用方需持有锁。
func (l *MemoryLimiter) sweep(now time.Time) {
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < memorySweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if n := len(b.events); n == 0 || !b.events[n-1].After(now.Add(-b.window)) {
			delete(l.buckets, key)
		}
	}
}
