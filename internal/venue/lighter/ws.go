// ws.go is Lighter's hand-rolled WebSocket client — no vendor SDK, per
// SPEC_FULL.md §4.1. It subscribes to the public order_book/{market_index}
// channel and the authenticated account_orders/{market_index}/{account_index}
// channel, feeding the former into an orderbook.Book and the latter into a
// venue.Normalizer. Protocol behavior (snapshot/delta framing, offset gap
// handling, ping/pong, a 10-minute auth token for account_orders) is
// transcribed from original_source/exchanges/lighter_custom_websocket.py.
// A fresh token is created on each (re)connect; it is not refreshed while a
// connection stays open.
// Go structuring (connMu-guarded conn, exponential-backoff Run loop, write
// deadlines) follows the teacher's internal/exchange/ws.go.
package lighter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"gridbot/internal/orderbook"
	"gridbot/internal/venue"
	"gridbot/pkg/types"
)

const (
	maxReconnectWait  = 30 * time.Second
	readTimeout       = 90 * time.Second
	writeTimeout      = 10 * time.Second
	authTokenLifetime = 10 * time.Minute
)

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wireOrderBook struct {
	Offset int64       `json:"offset"`
	Bids   []wireLevel `json:"bids"`
	Asks   []wireLevel `json:"asks"`
}

type wireEnvelope struct {
	Type      string                     `json:"type"`
	OrderBook *wireOrderBook             `json:"order_book,omitempty"`
	Orders    map[string][]wireOrderInfo `json:"orders,omitempty"`
}

type wireOrderInfo struct {
	ContractID string `json:"contract_id"`
	OrderID    string `json:"order_id"`
	Side       string `json:"side"`
	Status     string `json:"status"`
	OrderType  string `json:"order_type"`
	Size       string `json:"size"`
	Price      string `json:"price"`
	FilledSize string `json:"filled_size"`
}

// authTokenSource produces a fresh short-lived auth token for the account
// orders subscription, mirroring lighter_client.create_auth_token_with_expiry.
type authTokenSource func(expiry time.Time) (string, error)

type wsClient struct {
	url           string
	marketIndex   string
	accountIndex  string
	tokenSource   authTokenSource
	book          *orderbook.Book
	normalizer    *venue.Normalizer
	updateHandler venue.OrderUpdateHandler

	connMu sync.Mutex
	conn   *websocket.Conn

	logger *slog.Logger
}

func newWSClient(url, marketIndex, accountIndex string, tokenSource authTokenSource, book *orderbook.Book, normalizer *venue.Normalizer, logger *slog.Logger) *wsClient {
	return &wsClient{
		url:          url,
		marketIndex:  marketIndex,
		accountIndex: accountIndex,
		tokenSource:  tokenSource,
		book:         book,
		normalizer:   normalizer,
		logger:       logger.With("component", "lighter_ws"),
	}
}

func (c *wsClient) setUpdateHandler(h venue.OrderUpdateHandler) {
	c.updateHandler = h
}

// Run connects and maintains the WebSocket connection with auto-reconnect,
// matching connect()'s exponential backoff (1s doubling to 30s cap).
func (c *wsClient) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("lighter websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (c *wsClient) connectAndRead(ctx context.Context) error {
	c.book.Connecting()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	defer func() {
		c.connMu.Lock()
		conn.Close()
		c.conn = nil
		c.connMu.Unlock()
	}()

	if err := c.writeJSON(map[string]any{
		"type":    "subscribe",
		"channel": fmt.Sprintf("order_book/%s", c.marketIndex),
	}); err != nil {
		return fmt.Errorf("subscribe order_book: %w", err)
	}
	c.book.AwaitingSnapshot()

	if c.tokenSource != nil {
		token, err := c.tokenSource(time.Now().Add(authTokenLifetime))
		if err != nil {
			c.logger.Warn("failed to create account orders auth token", "error", err)
		} else {
			if err := c.writeJSON(map[string]any{
				"type":    "subscribe",
				"channel": fmt.Sprintf("account_orders/%s/%s", c.marketIndex, c.accountIndex),
				"auth":    token,
			}); err != nil {
				c.logger.Warn("failed to subscribe to account orders", "error", err)
			}
		}
	}

	c.logger.Info("lighter websocket connected")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		reconnect, err := c.dispatchMessage(msg)
		if err != nil {
			c.logger.Error("dispatch message", "error", err)
			continue
		}
		if reconnect {
			return fmt.Errorf("order book gap or integrity failure, forcing reconnect")
		}
	}
}

// dispatchMessage mirrors connect()'s message-type switch. reconnect is true
// when the order book reported a sequence gap or crossed-book integrity
// failure, matching the original's `break` out of the read loop to
// reconnect (request_fresh_snapshot is folded into "just reconnect": a new
// connection always re-subscribes and gets a fresh snapshot).
func (c *wsClient) dispatchMessage(raw []byte) (reconnect bool, err error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("unmarshal: %w", err)
	}

	switch env.Type {
	case "subscribed/order_book":
		if env.OrderBook == nil {
			return false, nil
		}
		bids := toLevels(env.OrderBook.Bids)
		asks := toLevels(env.OrderBook.Asks)
		c.book.ApplySnapshot(env.OrderBook.Offset, bids, asks)
		c.logger.Info("lighter order book snapshot loaded", "bids", len(bids), "asks", len(asks))

	case "update/order_book":
		if env.OrderBook == nil {
			return false, nil
		}
		bids := toLevels(env.OrderBook.Bids)
		asks := toLevels(env.OrderBook.Asks)
		if !c.book.ApplyDelta(env.OrderBook.Offset, bids, asks) {
			return true, nil
		}

	case "ping":
		if err := c.writeJSON(map[string]any{"type": "pong"}); err != nil {
			return false, fmt.Errorf("pong: %w", err)
		}

	case "update/account_orders":
		orders := env.Orders[c.marketIndex]
		for _, o := range orders {
			c.handleOrderInfo(o)
		}

	default:
		c.logger.Debug("unknown lighter ws message type", "type", env.Type)
	}

	return false, nil
}

func (c *wsClient) handleOrderInfo(o wireOrderInfo) {
	if c.updateHandler == nil || c.normalizer == nil {
		return
	}

	size, _ := decimal.NewFromString(o.Size)
	price, _ := decimal.NewFromString(o.Price)
	filled, _ := decimal.NewFromString(o.FilledSize)

	raw := venue.RawOrderEvent{
		ContractID: o.ContractID,
		OrderID:    o.OrderID,
		Side:       types.Side(o.Side),
		Status:     types.OrderStatus(o.Status),
		Size:       size,
		Price:      price,
		FilledSize: filled,
	}

	update, ok := c.normalizer.Normalize(raw)
	if !ok {
		return
	}
	c.updateHandler(update)
}

func toLevels(wl []wireLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(wl))
	for _, l := range wl {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(l.Size)
		if err != nil {
			continue
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out
}

func (c *wsClient) writeJSON(v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
