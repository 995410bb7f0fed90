// Package types defines the shared vocabulary of the grid-trading engine:
// order intents/results, order-book levels, and the canonical order-update
// event. It has no dependencies on internal packages, so any layer —
// venue adapters, the engine, the status surface — can import it.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind distinguishes how an intent should be placed.
type OrderKind string

const (
	KindOpenPostOnly  OrderKind = "open_post_only"
	KindClosePostOnly OrderKind = "close_post_only"
	KindCloseMarket   OrderKind = "close_market"
)

// OrderStatus is the canonical status vocabulary every adapter normalizes to.
type OrderStatus string

const (
	StatusOpen            OrderStatus = "OPEN"
	StatusFilled          OrderStatus = "FILLED"
	StatusPending         OrderStatus = "PENDING"
	StatusRejected        OrderStatus = "REJECTED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusUnknown         OrderStatus = "unknown"
)

// OrderEventType says whether a canonical OrderUpdate concerns the strategy's
// open-side order or its paired close-side order.
type OrderEventType string

const (
	EventOpen  OrderEventType = "OPEN"
	EventClose OrderEventType = "CLOSE"
)

// TradingConfig is the engine's immutable configuration for one
// (ticker, venue, direction) strategy. See SPEC_FULL.md §3.
type TradingConfig struct {
	Ticker         string
	ContractID     string // resolved by the adapter at startup
	Quantity       decimal.Decimal
	TakeProfitPct  decimal.Decimal // percent, e.g. 1.0 == 1%
	TickSize       decimal.Decimal // resolved by the adapter at startup
	Direction      Side
	MaxOrders      int
	WaitTime       time.Duration
	Venue          string
	GridStepPct    decimal.Decimal
	StopPrice      decimal.Decimal // -1 disables
	PausePrice     decimal.Decimal // -1 disables
	BoostMode      bool

	// RefreshStaleCloses gates the 10-minute timeout close-refresh path.
	// Disabled by default — see SPEC_FULL.md §9 Open Question 3.
	RefreshStaleCloses bool
}

// CloseSide is the side used to close a position opened in Direction.
func (c TradingConfig) CloseSide() Side {
	return c.Direction.Opposite()
}

// OrderIntent is what the engine asks an adapter to place.
type OrderIntent struct {
	ContractID string
	Quantity   decimal.Decimal
	Price      decimal.Decimal // zero value for market orders
	Side       Side
	Kind       OrderKind
}

// OrderResult is the synchronous response from placing/canceling an order.
type OrderResult struct {
	Success      bool
	OrderID      string
	Side         Side
	Size         decimal.Decimal
	Price        decimal.Decimal
	Status       OrderStatus
	ErrorMessage string
	FilledSize   decimal.Decimal
}

// OrderInfo is a queried snapshot of a single order.
// Invariant: FilledSize + RemainingSize <= Size; when Status == StatusFilled,
// FilledSize == Size.
type OrderInfo struct {
	OrderID       string
	Side          Side
	Size          decimal.Decimal
	Price         decimal.Decimal
	Status        OrderStatus
	FilledSize    decimal.Decimal
	RemainingSize decimal.Decimal
}

// OrderUpdate is the canonical lifecycle event every adapter normalizes
// venue-specific stream messages into (SPEC_FULL.md §4.3).
type OrderUpdate struct {
	OrderID    string
	Side       Side
	OrderType  OrderEventType
	Status     OrderStatus
	Size       decimal.Decimal
	Price      decimal.Decimal
	FilledSize decimal.Decimal
	ContractID string
}

// DeriveOrderType returns EventClose if side equals closeSide, else EventOpen.
func DeriveOrderType(side, closeSide Side) OrderEventType {
	if side == closeSide {
		return EventClose
	}
	return EventOpen
}

// PriceLevel is a single price/size pair in an order book.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// CloseOrder is one entry of the engine's active-close-orders index.
type CloseOrder struct {
	ID        string
	Price     decimal.Decimal
	Size      decimal.Decimal
	CreatedAt time.Time
}
