package lighter

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

// PlacePostOnlyOrder submits a post-only limit order and polls get_order_info
// until it leaves PENDING (or 10s elapses), matching place_limit_order +
// the polling loop embedded in place_open_order/place_close_order.
func (c *Client) PlacePostOnlyOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	if c.dryRun {
		return types.OrderResult{Success: true, OrderID: "dry-run", Side: intent.Side, Size: intent.Quantity, Price: intent.Price, Status: types.StatusOpen}, nil
	}

	if err := c.rl.Order.Wait(ctx); err != nil {
		return types.OrderResult{}, err
	}

	body, _ := json.Marshal(map[string]any{
		"contract_id": intent.ContractID,
		"side":        string(intent.Side),
		"quantity":    intent.Quantity.String(),
		"price":       intent.Price.String(),
		"post_only":   true,
	})
	headers, err := c.id.RequestHeaders(http.MethodPost, "/orders", string(body))
	if err != nil {
		return types.OrderResult{}, err
	}

	var placed struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
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

	status := types.OrderStatus(placed.Status)
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

// PlaceOpenOrder runs the shared attempt-5-safety-check open loop.
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

// PlaceCloseOrder runs the shared attempt-5-safety-check close loop, then
// sleeps 1s afterward — matching place_close_order's Lighter-specific
// `if self.config.exchange == "lighter": await asyncio.sleep(1)` pause
// (folded here instead of the engine, since it is adapter-specific).
func (c *Client) PlaceCloseOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	result, err := venue.PlaceCloseWithSafety(ctx, venue.CloseLoop{
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
	if err != nil {
		return types.OrderResult{}, err
	}

	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return types.OrderResult{}, ctx.Err()
	}

	return result, nil
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
		"contract_id": intent.ContractID,
		"side":        string(intent.Side),
		"quantity":    intent.Quantity.String(),
	})
	headers, err := c.id.RequestHeaders(http.MethodPost, "/orders/market", string(body))
	if err != nil {
		return types.OrderResult{}, err
	}

	var placed struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
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
		Status:  types.OrderStatus(placed.Status),
	}, nil
}

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

		var info types.OrderInfo
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&info).
			Get("/orders/" + orderID)
		if err != nil {
			return types.OrderInfo{}, fmt.Errorf("get order info: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return types.OrderInfo{}, fmt.Errorf("get order info: status %d: %s", resp.StatusCode(), resp.String())
		}
		info.Status = venue.CanonicalStatus(info.Status, info.FilledSize)
		return info, nil
	})
}

func (c *Client) GetActiveOrders(ctx context.Context, side types.Side) ([]types.OrderInfo, error) {
	return retry.WithRetry(ctx, retry.Config{Attempts: 3, Delay: 500 * time.Millisecond, Reraise: true}, func(ctx context.Context) ([]types.OrderInfo, error) {
		if err := c.rl.Query.Wait(ctx); err != nil {
			return nil, err
		}

		var orders []types.OrderInfo
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("contract_id", c.contractID).
			SetQueryParam("side", string(side)).
			SetResult(&orders).
			Get("/orders/active")
		if err != nil {
			return nil, fmt.Errorf("get active orders: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("get active orders: status %d: %s", resp.StatusCode(), resp.String())
		}
		for i := range orders {
			orders[i].Status = venue.CanonicalStatus(orders[i].Status, orders[i].FilledSize)
		}
		return orders, nil
	})
}

func (c *Client) GetAccountPosition(ctx context.Context) (decimal.Decimal, error) {
	return retry.WithRetry(ctx, retry.Config{Attempts: 3, Delay: 500 * time.Millisecond, Reraise: true}, func(ctx context.Context) (decimal.Decimal, error) {
		if err := c.rl.Query.Wait(ctx); err != nil {
			return decimal.Zero, err
		}

		var result struct {
			Position string `json:"position"`
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("contract_id", c.contractID).
			SetResult(&result).
			Get("/account/position")
		if err != nil {
			return decimal.Zero, fmt.Errorf("get account position: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return decimal.Zero, fmt.Errorf("get account position: status %d: %s", resp.StatusCode(), resp.String())
		}
		return decimal.NewFromString(result.Position)
	})
}
