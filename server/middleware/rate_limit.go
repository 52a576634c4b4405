// Package middleware holds request-level policies shared by the API surface.
package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter tracks one token bucket per user.
type RateLimiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	limits map[int32]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing perMinute requests per user, with
// a burst of the same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit:  rate.Every(time.Minute / time.Duration(perMinute)),
		burst:  perMinute,
		limits: make(map[int32]*rate.Limiter),
	}
}

// getLimiter gets or creates the limiter for one user.
func (rl *RateLimiter) getLimiter(userID int32) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[userID]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[userID] = limiter
	return limiter
}

// Allow reports whether the user may make a request right now.
func (rl *RateLimiter) Allow(userID int32) bool {
	return rl.getLimiter(userID).Allow()
}

// Wait blocks until the user may make a request or the context ends.
func (rl *RateLimiter) Wait(ctx context.Context, userID int32) error {
	return rl.getLimiter(userID).Wait(ctx)
}
