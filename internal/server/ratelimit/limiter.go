// Package ratelimit implements a fixed-window request counter over Redis,
// used to gate the authentication endpoints (register/login/refresh) where
// credential guessing and refresh-token replay attempts concentrate.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/homedash/internal/common"
)

// Config holds limiter tuning parameters.
type Config struct {
	// Limit is the maximum number of attempts per client address within Window.
	Limit int
	// Window is the fixed counting window.
	Window time.Duration
}

// Limiter counts attempts per (endpoint class, client address) pair in Redis.
// Counters expire on their own when the window rolls over.
type Limiter struct {
	client redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{client: client, config: cfg}
}

func counterKey(class string, addr string) string {
	return "ratelimit:" + class + ":" + addr
}

// Allow records one attempt for the given class and client address.
// When the attempt exceeds the configured ceiling it returns
// common.ErrorRateLimited together with the time until the window resets.
// INCR is atomic, so concurrent attempts cannot under-count.
func (l *Limiter) Allow(ctx context.Context, class string, addr string) (time.Duration, error) {
	key := counterKey(class, addr)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
		}
	}

	if count > int64(l.config.Limit) {
		retryAfter, err := l.client.TTL(ctx, key).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = l.config.Window
		}
		return retryAfter, common.ErrorRateLimited
	}

	return 0, nil
}
