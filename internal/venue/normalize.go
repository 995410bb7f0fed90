package venue

import (
	"sync"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

// RawOrderEvent is the venue-agnostic shape an adapter's stream/poll layer
// extracts from its wire message before handing it to a Normalizer. Each
// adapter's own decode step (REST JSON or WS JSON) fills this in.
type RawOrderEvent struct {
	ContractID string
	OrderID    string
	Side       types.Side
	Status     types.OrderStatus
	Size       decimal.Decimal
	Price      decimal.Decimal
	FilledSize decimal.Decimal
}

// Normalizer turns a venue's raw order events into the canonical
// types.OrderUpdate the engine consumes, transcribing
// original_source/trading_bot.py's order_update_handler closure: it derives
// OrderType from side vs. the configured close side, and suppresses
// duplicate OPEN events for an order it has already reported OPEN for with
// an unchanged filled size (the original keeps no explicit memo for this, but the effect of
// current_order_status only being set once per attempt requires one in a
// stateless Go adapter — see DESIGN.md).
type Normalizer struct {
	contractID string
	closeSide  types.Side

	mu          sync.Mutex
	seenOpenIDs map[string]decimal.Decimal
}

// NewNormalizer builds a Normalizer scoped to one contract and close side.
func NewNormalizer(contractID string, closeSide types.Side) *Normalizer {
	return &Normalizer{
		contractID:  contractID,
		closeSide:   closeSide,
		seenOpenIDs: make(map[string]decimal.Decimal),
	}
}

// Normalize converts a RawOrderEvent into a types.OrderUpdate. ok is false
// when the event is for a different contract (dropped, matching the
// original's `if message.get('contract_id') != self.config.contract_id:
// return`) or is a duplicate OPEN status report for an order already seen
// with the same filled size.
func (n *Normalizer) Normalize(raw RawOrderEvent) (types.OrderUpdate, bool) {
	if raw.ContractID != n.contractID {
		return types.OrderUpdate{}, false
	}

	orderType := types.DeriveOrderType(raw.Side, n.closeSide)

	if orderType == types.EventOpen && raw.Status == types.StatusOpen {
		n.mu.Lock()
		lastFilled, dup := n.seenOpenIDs[raw.OrderID]
		dup = dup && lastFilled.Equal(raw.FilledSize)
		if !dup {
			n.seenOpenIDs[raw.OrderID] = raw.FilledSize
		}
		n.mu.Unlock()
		if dup {
			return types.OrderUpdate{}, false
		}
	}

	// A terminal status frees the order id to be reused for a future OPEN
	// report (e.g. after a cancel-and-resubmit).
	if orderType == types.EventOpen && isTerminal(raw.Status) {
		n.mu.Lock()
		delete(n.seenOpenIDs, raw.OrderID)
		n.mu.Unlock()
	}

	return types.OrderUpdate{
		OrderID:    raw.OrderID,
		Side:       raw.Side,
		OrderType:  orderType,
		Status:     CanonicalStatus(raw.Status, raw.FilledSize),
		Size:       raw.Size,
		Price:      raw.Price,
		FilledSize: raw.FilledSize,
		ContractID: raw.ContractID,
	}, true
}

// CanonicalStatus applies the OPEN + filled_size>0 -> PARTIALLY_FILLED
// derivation: a venue that only reports OPEN/FILLED/CANCELED/REJECTED still
// has its partial fills surfaced to the engine as PARTIALLY_FILLED. Both the
// streaming Normalize path and each adapter's REST order-info decoding
// (wireOrder.toOrderInfo-style conversions) apply it, since a venue's poll
// endpoint reports the same raw OPEN/filled_size shape its stream does.
func CanonicalStatus(status types.OrderStatus, filledSize decimal.Decimal) types.OrderStatus {
	if status == types.StatusOpen && filledSize.GreaterThan(decimal.Zero) {
		return types.StatusPartiallyFilled
	}
	return status
}

func isTerminal(status types.OrderStatus) bool {
	switch status {
	case types.StatusFilled, types.StatusCanceled, types.StatusRejected:
		return true
	default:
		return false
	}
}
