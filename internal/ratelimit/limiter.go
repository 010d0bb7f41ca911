// Package ratelimit paces datagrams sent to the daemon under test.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter spaces sends evenly at a fixed number per second. A rate of
// zero disables pacing.
type RateLimiter struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

func NewRateLimiter(perSecond float64) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.RLock()
	limiter := r.limiter
	limit := limiter.Limit()
	r.mu.RUnlock()

	if limit == 0 {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

func (r *RateLimiter) SetRate(perSecond float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.SetLimit(rate.Limit(perSecond))
}

// Rate returns the configured sends per second.
func (r *RateLimiter) Rate() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return float64(r.limiter.Limit())
}
