package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

// handleOrderUpdate is the venue.OrderUpdateHandler registered with the
// adapter. It mirrors _setup_websocket_handlers's order_update_handler:
// track the open order's live status, and fire the filled/canceled events
// the open-order monitor loop below waits on.
func (e *Engine) handleOrderUpdate(u types.OrderUpdate) {
	if u.OrderType == types.EventOpen {
		e.mu.Lock()
		e.currentOrderStatus = u.Status
		e.mu.Unlock()
	}

	switch u.Status {
	case types.StatusFilled:
		if u.OrderType == types.EventOpen {
			e.mu.Lock()
			e.orderFilledAmount = u.FilledSize
			e.mu.Unlock()
			e.orderFilledEvent.Set()
		}
		e.logger.Info("order filled", "order_type", u.OrderType, "order_id", u.OrderID, "size", u.Size.String(), "price", u.Price.String())

	case types.StatusCanceled:
		if u.OrderType == types.EventOpen {
			e.mu.Lock()
			e.orderFilledAmount = u.FilledSize
			e.mu.Unlock()
			e.orderCanceledEvent.Set()
		}
		e.logger.Info("order canceled", "order_type", u.OrderType, "order_id", u.OrderID, "size", u.Size.String(), "price", u.Price.String())

	case types.StatusPartiallyFilled:
		e.logger.Info("order partially filled", "order_type", u.OrderType, "order_id", u.OrderID, "filled", u.FilledSize.String(), "price", u.Price.String())

	default:
		e.logger.Info("order update", "order_type", u.OrderType, "order_id", u.OrderID, "status", u.Status, "size", u.Size.String(), "price", u.Price.String())
	}
}

// placeAndMonitorOpenOrder places one open-side order and drives it to a
// terminal outcome (filled, or canceled-and-replaced-by-a-close-order for
// whatever partial amount did fill), transcribing
// _place_and_monitor_open_order + _handle_order_result.
func (e *Engine) placeAndMonitorOpenOrder(ctx context.Context) error {
	e.orderFilledEvent.Clear()
	e.mu.Lock()
	e.currentOrderStatus = types.StatusOpen
	e.orderFilledAmount = decimal.Zero
	e.mu.Unlock()

	result, err := e.adapter.PlaceOpenOrder(ctx, types.OrderIntent{
		ContractID: e.cfg.ContractID,
		Quantity:   e.cfg.Quantity,
		Side:       e.cfg.Direction,
		Kind:       types.KindOpenPostOnly,
	})
	if err != nil {
		e.logger.Error("error placing open order", "error", err)
		return nil
	}
	if !result.Success {
		e.logger.Error("open order placement unsuccessful", "message", result.ErrorMessage)
		return nil
	}

	if result.Status == types.StatusFilled {
		return e.handleOrderResult(ctx, result)
	}

	if !e.orderFilledEvent.IsSet() {
		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_ = e.orderFilledEvent.Wait(waitCtx)
		cancel()
	}

	return e.handleOrderResult(ctx, result)
}

// handleOrderResult reacts to the open order's outcome: if filled, place the
// paired close order (or a market close in boost mode); otherwise keep
// waiting while the order stays OPEN and the canonical open price has not
// moved past it, then cancel the resting open order and place a close order
// sized to whatever partial amount did fill.
func (e *Engine) handleOrderResult(ctx context.Context, orderResult types.OrderResult) error {
	orderID := orderResult.OrderID
	filledPrice := orderResult.Price

	if e.orderFilledEvent.IsSet() || orderResult.Status == types.StatusFilled {
		return e.placeCloseForFullFill(ctx, e.cfg.Quantity, filledPrice)
	}

	newOrderPrice, err := e.adapter.GetOrderPrice(ctx, e.cfg.Direction)
	if err != nil {
		return fmt.Errorf("get order price: %w", err)
	}

	shouldWait := func(price decimal.Decimal) bool {
		if e.cfg.Direction == types.Buy {
			return newOrderPrice.LessThanOrEqual(price)
		}
		return newOrderPrice.GreaterThanOrEqual(price)
	}

	currentStatus, err := e.queryOrderStatus(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order info: %w", err)
	}

	for shouldWait(orderResult.Price) && currentStatus == types.StatusOpen {
		e.logger.Info("waiting for open order to be filled", "order_id", orderID)
		if err := sleepCtx(ctx, 5*time.Second); err != nil {
			return err
		}

		currentStatus, err = e.queryOrderStatus(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get order info: %w", err)
		}
		newOrderPrice, err = e.adapter.GetOrderPrice(ctx, e.cfg.Direction)
		if err != nil {
			return fmt.Errorf("get order price: %w", err)
		}
	}

	e.orderCanceledEvent.Clear()
	e.logger.Info("cancelling open order and placing a new one", "order_id", orderID)

	if _, err := e.adapter.CancelOrder(ctx, orderID); err != nil {
		e.logger.Error("error canceling open order", "order_id", orderID, "error", err)
	}

	filledAmount, err := e.awaitCancelOutcome(ctx, orderID)
	if err != nil {
		return err
	}

	if filledAmount.GreaterThan(decimal.Zero) {
		return e.placeCloseForPartialFill(ctx, filledAmount, filledPrice)
	}
	return nil
}

// queryOrderStatus asks the adapter for the order's current status. Both
// adapters expose this uniformly through GetOrderInfo, so there is no
// venue-specific branch here the way the Python original special-cases
// Lighter's locally cached current_order attribute.
func (e *Engine) queryOrderStatus(ctx context.Context, orderID string) (types.OrderStatus, error) {
	info, err := e.adapter.GetOrderInfo(ctx, orderID)
	if err != nil {
		return types.StatusUnknown, err
	}
	return info.Status, nil
}

// awaitCancelOutcome waits (up to 5s) for the cancel to be confirmed via the
// order-update stream, falling back to a direct order-info query for the
// final filled amount if the event never arrives.
func (e *Engine) awaitCancelOutcome(ctx context.Context, orderID string) (decimal.Decimal, error) {
	if !e.orderCanceledEvent.IsSet() {
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := e.orderCanceledEvent.Wait(waitCtx)
		cancel()
		if err != nil {
			info, infoErr := e.adapter.GetOrderInfo(ctx, orderID)
			if infoErr != nil {
				return decimal.Zero, fmt.Errorf("get order info: %w", infoErr)
			}
			e.mu.Lock()
			e.orderFilledAmount = info.FilledSize
			e.mu.Unlock()
		}
	}

	e.mu.RLock()
	amount := e.orderFilledAmount
	e.mu.RUnlock()
	return amount, nil
}

// placeCloseForFullFill places the take-profit close order for an open order
// that filled in full, matching the first branch of _handle_order_result:
// boost_mode closes at market immediately.
func (e *Engine) placeCloseForFullFill(ctx context.Context, size, filledPrice decimal.Decimal) error {
	closeSide := e.cfg.CloseSide()

	if e.cfg.BoostMode {
		result, err := e.adapter.PlaceMarketOrder(ctx, types.OrderIntent{
			ContractID: e.cfg.ContractID,
			Quantity:   size,
			Side:       closeSide,
			Kind:       types.KindCloseMarket,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCloseOrderFailed, err)
		}
		if !result.Success {
			return fmt.Errorf("%w: %s", ErrCloseOrderFailed, result.ErrorMessage)
		}
		e.recordCloseOrderTimestamp(result.OrderID)
		return nil
	}

	return e.placeTakeProfitClose(ctx, size, filledPrice, closeSide)
}

// placeCloseForPartialFill places the close order for whatever amount filled
// before the resting open order was canceled, matching the second branch of
// _handle_order_result: unlike a full fill, boost_mode here still rests a
// post-only close at the raw filled_price rather than hitting the market —
// trading_bot.py:333-339 calls place_close_order (not place_market_order) in
// this branch.
func (e *Engine) placeCloseForPartialFill(ctx context.Context, size, filledPrice decimal.Decimal) error {
	closeSide := e.cfg.CloseSide()

	if e.cfg.BoostMode {
		return e.submitCloseOrder(ctx, size, filledPrice, closeSide)
	}

	return e.placeTakeProfitClose(ctx, size, filledPrice, closeSide)
}

// placeTakeProfitClose computes the take-profit offset from filledPrice and
// rests a post-only close order there, matching the non-boost branch shared
// by both _handle_order_result close-order sites.
func (e *Engine) placeTakeProfitClose(ctx context.Context, size, filledPrice decimal.Decimal, closeSide types.Side) error {
	hundred := decimal.NewFromInt(100)
	var closePrice decimal.Decimal
	if closeSide == types.Sell {
		closePrice = filledPrice.Mul(decimal.NewFromInt(1).Add(e.cfg.TakeProfitPct.Div(hundred)))
	} else {
		closePrice = filledPrice.Mul(decimal.NewFromInt(1).Sub(e.cfg.TakeProfitPct.Div(hundred)))
	}

	e.mu.Lock()
	e.lastOpenOrderTime = time.Now()
	e.mu.Unlock()

	return e.submitCloseOrder(ctx, size, closePrice, closeSide)
}

func (e *Engine) submitCloseOrder(ctx context.Context, size, price decimal.Decimal, closeSide types.Side) error {
	result, err := e.adapter.PlaceCloseOrder(ctx, types.OrderIntent{
		ContractID: e.cfg.ContractID,
		Quantity:   size,
		Price:      price,
		Side:       closeSide,
		Kind:       types.KindClosePostOnly,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCloseOrderFailed, err)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrCloseOrderFailed, result.ErrorMessage)
	}
	e.recordCloseOrderTimestamp(result.OrderID)
	return nil
}

func (e *Engine) recordCloseOrderTimestamp(orderID string) {
	if orderID == "" {
		return
	}
	e.mu.Lock()
	e.closeOrderTimestamps[orderID] = time.Now()
	e.mu.Unlock()
}
