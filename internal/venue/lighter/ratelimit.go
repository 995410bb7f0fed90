// ratelimit.go configures token-bucket rate limiting for the Lighter REST
// and WebSocket subscription endpoints, sizing the shared
// internal/venue/internal/ratelimit buckets for Lighter's documented limits.
package lighter

import "gridbot/internal/venue/internal/ratelimit"

// rateLimiter groups token buckets by endpoint category.
type rateLimiter struct {
	Order  *ratelimit.Bucket // POST order placement
	Cancel *ratelimit.Bucket // order cancellation
	Query  *ratelimit.Bucket // order/position queries
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		Order:  ratelimit.NewBucket(50, 10),
		Cancel: ratelimit.NewBucket(50, 10),
		Query:  ratelimit.NewBucket(100, 20),
	}
}
