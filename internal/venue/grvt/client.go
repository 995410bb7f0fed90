// Package grvt implements the venue.Adapter for GRVT: a REST-polling
// variant with no persistent order-book stream, demonstrating the
// registry's polymorphism requirement alongside the WS-driven lighter
// adapter. Transcribed line-for-line from
// original_source/exchanges/grvt.py.
package grvt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"gridbot/internal/venue"
	"gridbot/internal/venue/internal/retry"
	"gridbot/internal/venue/internal/sign"
	"gridbot/pkg/types"
)

func init() {
	venue.Register("grvt", New)
}

// Client is the GRVT venue adapter.
type Client struct {
	http   *resty.Client
	id     *sign.Identity
	rl     *rateLimiter
	dryRun bool
	logger *slog.Logger

	ticker     string
	contractID string
	tickSize   decimal.Decimal
	closeSide  types.Side

	updateHandler venue.OrderUpdateHandler
	norm          *venue.Normalizer
}

// New builds an unconnected GRVT Client, registered under "grvt".
func New(cfg venue.Config) (venue.Adapter, error) {
	id, err := sign.NewIdentity(cfg.PrivateKeyHex, cfg.FunderAddress, cfg.ChainID, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("grvt: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(cfg.RESTBaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:      httpClient,
		id:        id,
		rl:        newRateLimiter(),
		dryRun:    cfg.DryRun,
		logger:    slog.Default().With("component", "venue_grvt"),
		ticker:    cfg.Ticker,
		closeSide: cfg.CloseSide,
	}, nil
}

// Connect resolves contract attributes and builds the normalizer. It starts
// no stream or poller: this adapter never invokes the handler registered
// through SetupOrderUpdateHandler, so the engine learns order state only
// through GetOrderInfo and GetActiveOrders.
func (c *Client) Connect(ctx context.Context) error {
	contractID, tickSize, err := c.fetchContractAttributes(ctx)
	if err != nil {
		return fmt.Errorf("grvt connect: %w", err)
	}
	c.contractID = contractID
	c.tickSize = tickSize

	c.norm = venue.NewNormalizer(c.contractID, c.closeSide)
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error { return nil }

func (c *Client) SetupOrderUpdateHandler(handler venue.OrderUpdateHandler) {
	c.updateHandler = handler
}

func (c *Client) GetContractAttributes() (string, decimal.Decimal, error) {
	if c.contractID == "" {
		return "", decimal.Zero, fmt.Errorf("grvt: not connected")
	}
	return c.contractID, c.tickSize, nil
}

func (c *Client) fetchContractAttributes(ctx context.Context) (string, decimal.Decimal, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return "", decimal.Zero, err
	}

	var markets []struct {
		Base       string `json:"base"`
		Quote      string `json:"quote"`
		Kind       string `json:"kind"`
		Instrument string `json:"instrument"`
		TickSize   string `json:"tick_size"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&markets).Get("/markets")
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("fetch markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", decimal.Zero, fmt.Errorf("fetch markets: status %d: %s", resp.StatusCode(), resp.String())
	}

	for _, m := range markets {
		if m.Base == c.ticker && m.Quote == "USDT" && m.Kind == "PERPETUAL" {
			tickSize, err := decimal.NewFromString(m.TickSize)
			if err != nil {
				return "", decimal.Zero, fmt.Errorf("parse tick size: %w", err)
			}
			return m.Instrument, tickSize, nil
		}
	}
	return "", decimal.Zero, fmt.Errorf("contract not found for ticker: %s", c.ticker)
}

// FetchBBOPrices polls the REST order book endpoint (depth 10), matching
// fetch_bbo_prices's `@query_retry(reraise=True)` behavior.
func (c *Client) FetchBBOPrices(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	type bbo struct{ bid, ask decimal.Decimal }

	result, err := retry.WithRetry(ctx, retry.Config{Attempts: 3, Delay: time.Second, Reraise: true}, func(ctx context.Context) (bbo, error) {
		if err := c.rl.Query.Wait(ctx); err != nil {
			return bbo{}, err
		}

		var book struct {
			Bids []struct {
				Price string `json:"price"`
			} `json:"bids"`
			Asks []struct {
				Price string `json:"price"`
			} `json:"asks"`
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("symbol", c.contractID).
			SetQueryParam("limit", "10").
			SetResult(&book).
			Get("/orderbook")
		if err != nil {
			return bbo{}, fmt.Errorf("fetch order book: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return bbo{}, fmt.Errorf("fetch order book: status %d: %s", resp.StatusCode(), resp.String())
		}

		var bid, ask decimal.Decimal
		if len(book.Bids) > 0 {
			bid, _ = decimal.NewFromString(book.Bids[0].Price)
		}
		if len(book.Asks) > 0 {
			ask, _ = decimal.NewFromString(book.Asks[0].Price)
		}
		return bbo{bid: bid, ask: ask}, nil
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return result.bid, result.ask, nil
}

// GetOrderPrice matches GRVT's canonical formula: bestAsk - tick (buy),
// bestBid + tick (sell).
func (c *Client) GetOrderPrice(ctx context.Context, side types.Side) (decimal.Decimal, error) {
	bestBid, bestAsk, err := c.FetchBBOPrices(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if bestBid.LessThanOrEqual(decimal.Zero) || bestAsk.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: invalid bid/ask prices", venue.ErrMarketData)
	}

	switch side {
	case types.Buy:
		return bestAsk.Sub(c.tickSize), nil
	case types.Sell:
		return bestBid.Add(c.tickSize), nil
	default:
		return decimal.Zero, fmt.Errorf("invalid direction: %s", side)
	}
}
