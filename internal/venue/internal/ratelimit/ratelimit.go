// Package ratelimit implements the continuous-refill token bucket shared by
// every venue adapter's per-category rate limiting (order placement, order
// cancellation, read-only queries), transcribing the teacher's
// internal/exchange/ratelimit.go TokenBucket. Each adapter package still owns
// its own bucket sizing (rate/capacity), since venues document different
// limits; only the refill/Wait algorithm is shared.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is a token-bucket rate limiter with continuous refill. Callers
// block in Wait until a token is available or ctx is canceled.
type Bucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewBucket returns a Bucket starting full, refilling at ratePerSecond
// tokens/second up to capacity.
func NewBucket(capacity, ratePerSecond float64) *Bucket {
	return &Bucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available, consumes it, and returns. It
// returns ctx.Err() if ctx is canceled first.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(b.lastTime).Seconds()
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.lastTime = now

		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
