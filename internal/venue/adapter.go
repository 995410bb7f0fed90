// Package venue defines the exchange-adapter contract every supported venue
// implements, plus the registry that constructs adapters by name.
package venue

import (
	"context"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

// OrderUpdateHandler is invoked by an adapter's streaming/polling layer for
// every normalized order lifecycle event. Handlers must not block.
type OrderUpdateHandler func(types.OrderUpdate)

// Adapter is the uniform contract the engine drives every venue through.
// Every method that only reads venue state is expected to apply the
// package's retry discipline internally (see internal/venue/internal/retry);
// every method that mutates venue state (places/cancels an order) implements
// its own attempt/REJECTED-retry loop and must not be wrapped again by the
// engine.
type Adapter interface {
	// Connect establishes the adapter's connectivity (REST auth, WS stream,
	// or both) and resolves ContractID/TickSize for cfg.Ticker.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// GetContractAttributes resolves the venue-specific contract id and tick
	// size for the configured ticker. Must be called after Connect.
	GetContractAttributes() (contractID string, tickSize decimal.Decimal, err error)

	// FetchBBOPrices returns the best bid and best ask for the adapter's
	// contract. Implementations apply the NOTIONAL_MIN floor internally when
	// backed by a maintained order book.
	FetchBBOPrices(ctx context.Context) (bestBid, bestAsk decimal.Decimal, err error)

	// GetOrderPrice returns the post-only open price for side. The formula
	// is venue-specific: grvt uses bestAsk - tickSize for buy and
	// bestBid + tickSize for sell; lighter starts from the BBO midpoint and
	// tightens it against resting close orders.
	GetOrderPrice(ctx context.Context, side types.Side) (decimal.Decimal, error)

	PlacePostOnlyOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error)
	PlaceOpenOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error)
	PlaceCloseOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error)
	PlaceMarketOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) (types.OrderResult, error)

	GetOrderInfo(ctx context.Context, orderID string) (types.OrderInfo, error)
	GetActiveOrders(ctx context.Context, side types.Side) ([]types.OrderInfo, error)

	// GetAccountPosition returns the position size for the adapter's
	// contract. The sign convention is venue-specific (lighter returns the
	// venue's signed value, grvt returns the magnitude); the engine takes the
	// absolute value before comparing against active close size.
	GetAccountPosition(ctx context.Context) (decimal.Decimal, error)

	// SetupOrderUpdateHandler registers the callback the adapter's
	// streaming/polling layer delivers normalized OrderUpdate events to.
	SetupOrderUpdateHandler(handler OrderUpdateHandler)
}

// Config is the subset of config.Config an adapter constructor needs,
// duplicated here (rather than imported) to avoid a venue -> config ->
// venue import cycle; cmd/gridbot maps config.Config into this shape.
type Config struct {
	Ticker        string
	PrivateKeyHex string
	SignatureType int
	FunderAddress string
	ChainID       int
	RESTBaseURL   string
	WSBaseURL     string
	APIKey        string
	APISecret     string
	AccountID     string
	DryRun        bool

	// CloseSide is the opposite side of the configured trading direction,
	// precomputed by the caller (types.TradingConfig.CloseSide()) so every
	// adapter constructor can set it up front instead of requiring a
	// post-construction setter call before Connect.
	CloseSide types.Side
}

// Constructor builds a new, unconnected Adapter instance.
type Constructor func(cfg Config) (Adapter, error)
