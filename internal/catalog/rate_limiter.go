package catalog

import (
	"context"

	"golang.org/x/time/rate"
)

const defaultRateLimit = 10

// RateLimiter throttles catalog API calls
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a token bucket refilled at rps with a burst of 2*rps
func NewRateLimiter(rps int) *RateLimiter {
	if rps <= 0 {
		rps = defaultRateLimit
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps*2),
	}
}

// Wait blocks until the rate limiter allows a request
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow checks if a request is allowed without blocking
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
