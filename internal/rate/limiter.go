// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package rate provides the fixed-window request limiter consulted by the
// rate limit middleware. Check results are recorded on the request notes.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter checks whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func windowKey(prefix, key string, window time.Duration, now time.Time) string {
	winStart := now.UTC().Truncate(window)
	return fmt.Sprintf("%s%s:%d", prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())
}

func buildResult(hits, max int64, ttl time.Duration) Result {
	allowed := hits <= max
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !allowed {
		res.RetryAfter = ttl
	}
	return res
}

// RedisLimiter is a fixed window limiter backed by Redis (INCR + EXPIRE).
// One instance may be shared by every worker in a deployment.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

// NewRedisLimiter creates a Redis-backed limiter allowing max hits per window.
func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

// Allow counts a hit for key in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := windowKey(l.Prefix, key, l.Window, time.Now())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	res := buildResult(incr.Val(), l.Max, ttl.Val())
	if !res.Allowed && res.RetryAfter <= 0 {
		res.RetryAfter = l.Window
	}
	return res, nil
}

// MemoryLimiter is a fixed window limiter for single-process deployments.
// Window counters live in an expiring in-memory cache.
type MemoryLimiter struct {
	counters *gocache.Cache
	Prefix   string
	Max      int64
	Window   time.Duration
}

// NewMemoryLimiter creates an in-memory limiter allowing max hits per window.
func NewMemoryLimiter(prefix string, max int, window time.Duration) *MemoryLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &MemoryLimiter{
		counters: gocache.New(window, 2*window),
		Prefix:   prefix,
		Max:      int64(max),
		Window:   window,
	}
}

// Allow counts a hit for key in the current window.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	memKey := windowKey(l.Prefix, key, l.Window, now)

	// Add is a no-op when the counter already exists, so the first hit of
	// each window creates it with the window's TTL.
	_ = l.counters.Add(memKey, int64(0), l.Window)
	hits, err := l.counters.IncrementInt64(memKey, 1)
	if err != nil {
		// The counter expired between Add and Increment; restart the window.
		l.counters.Set(memKey, int64(1), l.Window)
		hits = 1
	}

	ttl := l.Window - now.Sub(now.UTC().Truncate(l.Window))
	return buildResult(hits, l.Max, ttl), nil
}
