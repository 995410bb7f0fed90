package grvt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/internal/venue"
	"gridbot/internal/venue/internal/retry"
	"gridbot/pkg/types"
)

// orderLeg is GRVT's nested order representation: book size and traded size
// live under legs[0] (state is top-level), matching grvt.py's get_order_info/get_active_orders
// indexing (`order["legs"][0]["traded_size"][0]`).
type orderLeg struct {
	Instrument string   `json:"instrument"`
	Size       []string `json:"book_size"`
	Traded     []string `json:"traded_size"`
}

type wireOrder struct {
	OrderID string     `json:"order_id"`
	Side    string     `json:"side"`
	Price   string     `json:"price"`
	State   string     `json:"state"`
	Legs    []orderLeg `json:"legs"`
}

func (w wireOrder) toOrderInfo() types.OrderInfo {
	var size, filled decimal.Decimal
	if len(w.Legs) > 0 {
		if len(w.Legs[0].Size) > 0 {
			size, _ = decimal.NewFromString(w.Legs[0].Size[0])
		}
		if len(w.Legs[0].Traded) > 0 {
			filled, _ = decimal.NewFromString(w.Legs[0].Traded[0])
		}
	}
	price, _ := decimal.NewFromString(w.Price)
	return types.OrderInfo{
		OrderID:    w.OrderID,
		Side:       types.Side(w.Side),
		Status:     venue.CanonicalStatus(types.OrderStatus(w.State), filled),
		Size:       size,
		Price:      price,
		FilledSize: filled,
	}
}

// PlacePostOnlyOrder submits a post-only limit order and polls get_order_info
// until it leaves PENDING (or 10s elapses), matching place_post_only_order.
func (c *Client) PlacePostOnlyOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	if c.dryRun {
		return types.OrderResult{Success: true, OrderID: "dry-run", Side: intent.Side, Size: intent.Quantity, Price: intent.Price, Status: types.StatusOpen}, nil
	}

	if err := c.rl.Order.Wait(ctx); err != nil {
		return types.OrderResult{}, err
	}

	body, _ := json.Marshal(map[string]any{
		"instrument": intent.ContractID,
		"side":       string(intent.Side),
		"size":       intent.Quantity.String(),
		"price":      intent.Price.String(),
		"post_only":  true,
	})
	headers, err := c.id.RequestHeaders(http.MethodPost, "/orders", string(body))
	if err != nil {
		return types.OrderResult{}, err
	}

	var placed wireOrder
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(json.RawMessage(body)).
		SetResult(&placed).
		Post("/orders")
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return types.OrderResult{}, fmt.Errorf("place order: status %d: %s", resp.StatusCode(), resp.String())
	}

	status := types.OrderStatus(placed.State)
	start := time.Now()
	for status == types.StatusPending && time.Since(start) < 10*time.Second {
		time.Sleep(50 * time.Millisecond)
		info, err := c.GetOrderInfo(ctx, placed.OrderID)
		if err == nil {
			status = info.Status
		}
	}

	return types.OrderResult{
		Success: true,
		OrderID: placed.OrderID,
		Side:    intent.Side,
		Size:    intent.Quantity,
		Price:   intent.Price,
		Status:  status,
	}, nil
}

// PlaceOpenOrder runs the shared attempt-5-safety-check open loop — the same
// helper the lighter adapter uses, since the safety check is part of the
// uniform adapter contract, not a GRVT-only behavior.
func (c *Client) PlaceOpenOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	return venue.PlaceOpenWithSafety(ctx, venue.OpenLoop{
		Side:       intent.Side,
		Quantity:   intent.Quantity,
		ContractID: intent.ContractID,
		GetOrderPrice: func(ctx context.Context, side types.Side) (decimal.Decimal, error) {
			return c.GetOrderPrice(ctx, side)
		},
		CountActiveOpen: func(ctx context.Context) (int, error) {
			orders, err := c.GetActiveOrders(ctx, c.closeSide.Opposite())
			return len(orders), err
		},
		PlacePostOnly: c.PlacePostOnlyOrder,
	})
}

// PlaceCloseOrder runs the shared attempt-5-safety-check close loop.
func (c *Client) PlaceCloseOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	return venue.PlaceCloseWithSafety(ctx, venue.CloseLoop{
		Side:       intent.Side,
		Quantity:   intent.Quantity,
		ContractID: intent.ContractID,
		Price:      intent.Price,
		TickSize:   c.tickSize,
		BestBidAsk: c.FetchBBOPrices,
		CountActiveClose: func(ctx context.Context) (int, error) {
			orders, err := c.GetActiveOrders(ctx, c.closeSide)
			return len(orders), err
		},
		PlacePostOnly: c.PlacePostOnlyOrder,
	})
}

// PlaceMarketOrder is used only in boost mode, closing the full position at
// market instead of posting a take-profit limit order.
func (c *Client) PlaceMarketOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	if c.dryRun {
		return types.OrderResult{Success: true, OrderID: "dry-run-market", Side: intent.Side, Size: intent.Quantity, Status: types.StatusFilled}, nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return types.OrderResult{}, err
	}

	body, _ := json.Marshal(map[string]any{
		"instrument": intent.ContractID,
		"side":       string(intent.Side),
		"size":       intent.Quantity.String(),
	})
	headers, err := c.id.RequestHeaders(http.MethodPost, "/orders/market", string(body))
	if err != nil {
		return types.OrderResult{}, err
	}

	var placed wireOrder
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(json.RawMessage(body)).
		SetResult(&placed).
		Post("/orders/market")
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("place market order: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return types.OrderResult{}, fmt.Errorf("place market order: status %d: %s", resp.StatusCode(), resp.String())
	}

	return types.OrderResult{
		Success: true,
		OrderID: placed.OrderID,
		Side:    intent.Side,
		Size:    intent.Quantity,
		Status:  types.OrderStatus(placed.State),
	}, nil
}

// CancelOrder mirrors grvt.py's try/except-wrapped cancel_order: failures are
// reported as a non-success OrderResult rather than a returned error.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (types.OrderResult, error) {
	if c.dryRun {
		return types.OrderResult{Success: true, OrderID: orderID, Status: types.StatusCanceled}, nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return types.OrderResult{}, err
	}

	headers, err := c.id.RequestHeaders(http.MethodDelete, "/orders/"+orderID, "")
	if err != nil {
		return types.OrderResult{}, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Delete("/orders/" + orderID)
	if err != nil {
		return types.OrderResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	if resp.StatusCode() >= 300 {
		return types.OrderResult{Success: false, ErrorMessage: resp.String()}, nil
	}
	return types.OrderResult{Success: true, OrderID: orderID, Status: types.StatusCanceled}, nil
}

func (c *Client) GetOrderInfo(ctx context.Context, orderID string) (types.OrderInfo, error) {
	return retry.WithRetry(ctx, retry.Config{Attempts: 3, Delay: 500 * time.Millisecond, Reraise: true}, func(ctx context.Context) (types.OrderInfo, error) {
		if err := c.rl.Query.Wait(ctx); err != nil {
			return types.OrderInfo{}, err
		}

		var order wireOrder
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&order).
			Get("/orders/" + orderID)
		if err != nil {
			return types.OrderInfo{}, fmt.Errorf("get order info: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return types.OrderInfo{}, fmt.Errorf("get order info: status %d: %s", resp.StatusCode(), resp.String())
		}
		return order.toOrderInfo(), nil
	})
}

// GetActiveOrders parses the same legs/state nested shape get_active_orders
// indexes into, filtering to the given side.
func (c *Client) GetActiveOrders(ctx context.Context, side types.Side) ([]types.OrderInfo, error) {
	return retry.WithRetry(ctx, retry.Config{Attempts: 3, Delay: 500 * time.Millisecond, Reraise: true}, func(ctx context.Context) ([]types.OrderInfo, error) {
		if err := c.rl.Query.Wait(ctx); err != nil {
			return nil, err
		}

		var orders []wireOrder
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("instrument", c.contractID).
			SetQueryParam("side", string(side)).
			SetResult(&orders).
			Get("/orders/active")
		if err != nil {
			return nil, fmt.Errorf("get active orders: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("get active orders: status %d: %s", resp.StatusCode(), resp.String())
		}

		out := make([]types.OrderInfo, 0, len(orders))
		for _, o := range orders {
			out = append(out, o.toOrderInfo())
		}
		return out, nil
	})
}

// GetAccountPosition iterates positions matching the current instrument,
// matching get_account_positions. The magnitude is returned unsigned here
// (matching grvt.py's own abs(Decimal(size)) at this layer); the engine
// still re-applies Abs() at its boundary so both adapters present an
// identical contract regardless of a given venue's raw sign convention.
func (c *Client) GetAccountPosition(ctx context.Context) (decimal.Decimal, error) {
	return retry.WithRetry(ctx, retry.Config{Attempts: 3, Delay: 500 * time.Millisecond, Reraise: true}, func(ctx context.Context) (decimal.Decimal, error) {
		if err := c.rl.Query.Wait(ctx); err != nil {
			return decimal.Zero, err
		}

		var positions []struct {
			Instrument string `json:"instrument"`
			Size       string `json:"size"`
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&positions).
			Get("/account/positions")
		if err != nil {
			return decimal.Zero, fmt.Errorf("get account positions: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return decimal.Zero, fmt.Errorf("get account positions: status %d: %s", resp.StatusCode(), resp.String())
		}

		for _, p := range positions {
			if p.Instrument == c.contractID {
				size, err := decimal.NewFromString(p.Size)
				if err != nil {
					return decimal.Zero, fmt.Errorf("parse position size: %w", err)
				}
				return size.Abs(), nil
			}
		}
		return decimal.Zero, nil
	})
}
