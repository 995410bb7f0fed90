package venue

import "errors"

// Typed errors surfaced across the venue/engine boundary, per SPEC_FULL.md §7.
var (
	// ErrUnknownVenue is returned by the registry when no constructor is
	// registered under the requested name.
	ErrUnknownVenue = errors.New("venue: unknown venue")

	// ErrMarketData indicates the adapter could not produce a usable best
	// bid/ask (stale, missing snapshot, or a zero/negative quote).
	ErrMarketData = errors.New("venue: market data unavailable")

	// ErrSafety indicates the attempt-5 duplicate-order safety check found
	// more active orders on one side than the strategy should ever hold.
	ErrSafety = errors.New("venue: safety check failed")

	// ErrOrderTimeout indicates an order stayed PENDING past the venue's
	// confirmation window.
	ErrOrderTimeout = errors.New("venue: order confirmation timed out")
)
