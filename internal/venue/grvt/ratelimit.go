// ratelimit.go configures token-bucket rate limiting for GRVT's REST
// endpoints, sizing the shared internal/venue/internal/ratelimit buckets for
// GRVT's documented limits. Since every GRVT call is a REST round trip (no
// persistent order-book stream), Query is shared by fetch_bbo_prices,
// get_order_info, get_active_orders, and get_account_positions.
package grvt

import "gridbot/internal/venue/internal/ratelimit"

type rateLimiter struct {
	Order  *ratelimit.Bucket
	Cancel *ratelimit.Bucket
	Query  *ratelimit.Bucket
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		Order:  ratelimit.NewBucket(50, 10),
		Cancel: ratelimit.NewBucket(50, 10),
		Query:  ratelimit.NewBucket(100, 20),
	}
}
