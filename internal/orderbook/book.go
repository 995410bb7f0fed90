// Package orderbook maintains a single contract's live order book from a
// sequence of snapshot + offset-delta updates, detecting sequence gaps and
// structural corruption the way a streaming venue feed requires.
//
// The state machine and validation rules are transcribed from
// original_source/exchanges/lighter_custom_websocket.py: offset-based gap
// detection (validate_order_book_offset), bid/ask crossing detection
// (validate_order_book_integrity), a notional-size floor on quoted levels
// (get_best_levels), and bounded level retention (cleanup_old_order_book_levels).
package orderbook

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

// State is the maintainer's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingSnapshot
	StateLive
	StateGapDetected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingSnapshot:
		return "awaiting_snapshot"
	case StateLive:
		return "live"
	case StateGapDetected:
		return "gap_detected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NotionalMin is the minimum price*size a level must clear to count toward
// best bid/ask — matches get_best_levels' `size * price >= 40000` floor.
var NotionalMin = decimal.NewFromInt(40000)

// MaxLevelsPerSide is the pruning cap applied per side, matching
// cleanup_old_order_book_levels' max_levels = 100.
const MaxLevelsPerSide = 100

// Book is a mutex-guarded, offset-validated order book for one contract.
type Book struct {
	mu sync.RWMutex

	state State

	bids map[string]decimal.Decimal // price string -> size, string-keyed to avoid float-key aliasing
	asks map[string]decimal.Decimal

	offset         int64
	haveOffset     bool
	snapshotLoaded bool
}

// New returns a Book in the Disconnected state.
func New() *Book {
	return &Book{
		state: StateDisconnected,
		bids:  make(map[string]decimal.Decimal),
		asks:  make(map[string]decimal.Decimal),
	}
}

// State returns the current lifecycle state.
func (b *Book) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Connecting transitions Disconnected/GapDetected -> Connecting and resets
// all book state, matching reset_order_book called at the top of connect().
func (b *Book) Connecting() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
	b.state = StateConnecting
}

// AwaitingSnapshot transitions Connecting -> AwaitingSnapshot, once the
// subscription handshake has been sent.
func (b *Book) AwaitingSnapshot() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateAwaitingSnapshot
}

// Closed transitions to Closed, e.g. on a deliberate Disconnect.
func (b *Book) Closed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
}

func (b *Book) reset() {
	b.bids = make(map[string]decimal.Decimal)
	b.asks = make(map[string]decimal.Decimal)
	b.snapshotLoaded = false
	b.haveOffset = false
	b.offset = 0
}

// ApplySnapshot replaces the book wholesale with a subscribed/order_book
// message's levels and records its starting offset.
func (b *Book) ApplySnapshot(offset int64, bids, asks []types.PriceLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = make(map[string]decimal.Decimal)
	b.asks = make(map[string]decimal.Decimal)
	b.offset = offset
	b.haveOffset = true

	b.applyLevels(b.bids, bids)
	b.applyLevels(b.asks, asks)

	b.snapshotLoaded = true
	b.state = StateLive
}

// ApplyDelta applies an update/order_book message. It returns ok=false when
// the caller must break its read loop and request a fresh snapshot: either
// a sequence gap (newOffset > expected) or a post-update integrity failure
// (crossed book). Out-of-order/duplicate deltas (newOffset <= expected) are
// silently ignored and ok=true, matching validate_order_book_offset's
// "don't reconnect for out-of-order updates" branch.
func (b *Book) ApplyDelta(offset int64, bids, asks []types.PriceLevel) (ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.snapshotLoaded {
		return true
	}

	if !b.validateOffset(offset) {
		b.state = StateGapDetected
		return false
	}

	b.applyLevels(b.bids, bids)
	b.applyLevels(b.asks, asks)

	if !b.integrityOK() {
		b.state = StateGapDetected
		return false
	}

	b.pruneLocked()
	return true
}

// validateOffset mirrors validate_order_book_offset exactly.
func (b *Book) validateOffset(newOffset int64) bool {
	if !b.haveOffset {
		b.offset = newOffset
		b.haveOffset = true
		return true
	}

	expected := b.offset + 1
	switch {
	case newOffset == expected:
		b.offset = newOffset
		return true
	case newOffset > expected:
		return false
	default:
		// out-of-order / duplicate: ignore, but don't force a reconnect.
		return true
	}
}

// applyLevels mirrors update_order_book: size == 0 deletes the level,
// levels with a non-positive price or a negative size are skipped silently
// (the caller already validated JSON shape before calling in).
func (b *Book) applyLevels(side map[string]decimal.Decimal, levels []types.PriceLevel) {
	for _, lvl := range levels {
		if lvl.Price.Sign() <= 0 || lvl.Size.Sign() < 0 {
			continue
		}
		key := lvl.Price.String()
		if lvl.Size.IsZero() {
			delete(side, key)
			continue
		}
		side[key] = lvl.Size
	}
}

// integrityOK mirrors validate_order_book_integrity: an empty book (either
// side) is valid; otherwise best bid must be strictly below best ask.
func (b *Book) integrityOK() bool {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return true
	}
	bestBid := b.bestPriceLocked(b.bids, true)
	bestAsk := b.bestPriceLocked(b.asks, false)
	return bestBid.LessThan(bestAsk)
}

func (b *Book) bestPriceLocked(side map[string]decimal.Decimal, highest bool) decimal.Decimal {
	var best decimal.Decimal
	first := true
	for key := range side {
		price, _ := decimal.NewFromString(key)
		if first {
			best = price
			first = false
			continue
		}
		if highest && price.GreaterThan(best) {
			best = price
		}
		if !highest && price.LessThan(best) {
			best = price
		}
	}
	return best
}

// pruneLocked keeps only the top MaxLevelsPerSide levels per side, matching
// cleanup_old_order_book_levels. Unlike the original (called every 1000
// messages), this is applied after every accepted delta since Go maps are
// cheap to rebuild at this scale. ApplySnapshot stores a snapshot's levels
// as received, so the cap holds from the first accepted delta onward.
func (b *Book) pruneLocked() {
	b.bids = prune(b.bids, true)
	b.asks = prune(b.asks, false)
}

func prune(side map[string]decimal.Decimal, highest bool) map[string]decimal.Decimal {
	if len(side) <= MaxLevelsPerSide {
		return side
	}

	type kv struct {
		price decimal.Decimal
		key   string
		size  decimal.Decimal
	}
	entries := make([]kv, 0, len(side))
	for key, size := range side {
		price, _ := decimal.NewFromString(key)
		entries = append(entries, kv{price: price, key: key, size: size})
	}
	sort.Slice(entries, func(i, j int) bool {
		if highest {
			return entries[i].price.GreaterThan(entries[j].price)
		}
		return entries[i].price.LessThan(entries[j].price)
	})

	kept := make(map[string]decimal.Decimal, MaxLevelsPerSide)
	for i := 0; i < MaxLevelsPerSide && i < len(entries); i++ {
		kept[entries[i].key] = entries[i].size
	}
	return kept
}

// BestBidAsk returns the best bid/ask after applying the notional floor,
// matching get_best_levels. ok is false if the book isn't Live (disconnected,
// reconnecting, or a gap/integrity failure is pending a fresh snapshot — §4.2
// requires fetch_bbo_prices to fail rather than return stale cached levels
// during that window) or either side has no qualifying level (NOTIONAL_MIN
// unmet or side empty).
func (b *Book) BestBidAsk() (bestBid, bestAsk decimal.Decimal, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.state != StateLive {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}

	bid, bidOK := bestQualifying(b.bids, true)
	ask, askOK := bestQualifying(b.asks, false)
	return bid, ask, bidOK && askOK
}

func bestQualifying(side map[string]decimal.Decimal, highest bool) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for key, size := range side {
		price, err := decimal.NewFromString(key)
		if err != nil {
			continue
		}
		if price.Mul(size).LessThan(NotionalMin) {
			continue
		}
		if !found {
			best = price
			found = true
			continue
		}
		if highest && price.GreaterThan(best) {
			best = price
		}
		if !highest && price.LessThan(best) {
			best = price
		}
	}
	return best, found
}
