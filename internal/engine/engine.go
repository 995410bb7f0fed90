// Package engine is the central orchestrator of the grid-trading bot: one
// Engine instance runs the open/close grid cycle for a single
// (ticker, venue, direction) TradingConfig against one venue.Adapter.
//
// Lifecycle: New() → Run(ctx) (blocks until shutdown or fatal error) → the
// adapter is disconnected automatically before Run returns.
//
// Transcribed from original_source/trading_bot.py's TradingBot class; the
// Go structuring (RWMutex-guarded snapshot state, a single blocking Run)
// follows the teacher's internal/engine/engine.go.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/internal/notify"
	"gridbot/internal/venue"
	"gridbot/pkg/types"
)

// Engine runs the grid-trading loop for one TradingConfig against one
// venue.Adapter.
type Engine struct {
	cfg      types.TradingConfig
	adapter  venue.Adapter
	notifier notify.Sink
	logger   *slog.Logger

	mu                    sync.RWMutex
	activeCloseOrders     []types.CloseOrder
	closeOrderTimestamps  map[string]time.Time
	lastCloseOrders       int
	lastOpenOrderTime     time.Time
	lastLogTime           time.Time
	currentOrderStatus    types.OrderStatus
	orderFilledAmount     decimal.Decimal
	position              decimal.Decimal

	orderFilledEvent   *event
	orderCanceledEvent *event

	shutdownRequested atomic.Bool
}

// New wires an Engine around an already-constructed adapter. The adapter
// must not yet be connected; Run calls Connect itself.
func New(cfg types.TradingConfig, adapter venue.Adapter, notifier notify.Sink, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:                  cfg,
		adapter:              adapter,
		notifier:             notifier,
		logger:               logger.With("ticker", cfg.Ticker, "venue", cfg.Venue),
		closeOrderTimestamps: make(map[string]time.Time),
		orderFilledEvent:     newEvent(),
		orderCanceledEvent:   newEvent(),
	}
}

// Snapshot is an immutable view of engine state for the status HTTP surface.
type Snapshot struct {
	Ticker            string
	Venue             string
	Direction         types.Side
	Position          decimal.Decimal
	ActiveCloseOrders []types.CloseOrder
	LastUpdated       time.Time
	ShutdownRequested bool
}

// Snapshot returns a point-in-time copy of engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	orders := make([]types.CloseOrder, len(e.activeCloseOrders))
	copy(orders, e.activeCloseOrders)

	return Snapshot{
		Ticker:            e.cfg.Ticker,
		Venue:             e.cfg.Venue,
		Direction:         e.cfg.Direction,
		Position:          e.position,
		ActiveCloseOrders: orders,
		LastUpdated:       e.lastLogTime,
		ShutdownRequested: e.shutdownRequested.Load(),
	}
}

// Run connects to the venue and blocks running the main trading loop until
// ctx is canceled, the stop price is hit, or a fatal error occurs. The
// adapter is always disconnected before Run returns, mirroring the
// original's try/finally around exchange_client.disconnect().
func (e *Engine) Run(ctx context.Context) error {
	e.logConfig()

	e.adapter.SetupOrderUpdateHandler(e.handleOrderUpdate)

	if err := e.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.adapter.Disconnect(disconnectCtx); err != nil {
			e.logger.Error("error disconnecting from venue", "error", err)
		}
	}()

	contractID, tickSize, err := e.adapter.GetContractAttributes()
	if err != nil {
		return fmt.Errorf("get contract attributes: %w", err)
	}
	e.cfg.ContractID = contractID
	e.cfg.TickSize = tickSize

	// Wait for the order-book stream (or first poll) to establish, matching
	// run()'s `await asyncio.sleep(5)` right after connect().
	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}

	runErr := e.loop(ctx)
	if runErr != nil && ctx.Err() == nil {
		e.logger.Error("critical error, shutting down", "error", runErr)
		e.notify(fmt.Sprintf("Critical error: %v", runErr))
	}
	return runErr
}

func (e *Engine) logConfig() {
	e.logger.Info("=== Trading Configuration ===")
	e.logger.Info("config",
		"ticker", e.cfg.Ticker,
		"quantity", e.cfg.Quantity.String(),
		"take_profit_pct", e.cfg.TakeProfitPct.String(),
		"direction", e.cfg.Direction,
		"max_orders", e.cfg.MaxOrders,
		"wait_time", e.cfg.WaitTime,
		"venue", e.cfg.Venue,
		"grid_step_pct", e.cfg.GridStepPct.String(),
		"stop_price", e.cfg.StopPrice.String(),
		"pause_price", e.cfg.PausePrice.String(),
		"boost_mode", e.cfg.BoostMode,
	)
}

// loop is the main trading loop, transcribed from TradingBot.run()'s
// `while not self.shutdown_requested` body.
func (e *Engine) loop(ctx context.Context) error {
	for !e.shutdownRequested.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.refreshActiveCloseOrders(ctx); err != nil {
			e.logger.Error("error refreshing active close orders", "error", err)
			if err := sleepCtx(ctx, time.Second); err != nil {
				return err
			}
			continue
		}

		mismatchDetected, err := e.logStatusPeriodically(ctx)
		if err != nil {
			e.logger.Error("error in periodic status check", "error", err)
		}

		if e.cfg.RefreshStaleCloses {
			e.checkAndRefreshTimeoutCloseOrders(ctx)
		}

		stopTrading, pauseTrading, err := e.checkPriceCondition(ctx)
		if err != nil {
			e.logger.Error("error checking price condition", "error", err)
			if err := sleepCtx(ctx, time.Second); err != nil {
				return err
			}
			continue
		}

		if stopTrading {
			msg := fmt.Sprintf("Stopped trading %s on %s: stop price triggered", e.cfg.Ticker, e.cfg.Venue)
			e.notify(msg)
			e.shutdownRequested.Store(true)
			return ErrStopPriceHit
		}

		if pauseTrading {
			if err := sleepCtx(ctx, 5*time.Second); err != nil {
				return err
			}
			continue
		}

		if mismatchDetected {
			return ErrPositionMismatch
		}

		waitTime := e.calculateWaitTime()
		if waitTime > 0 {
			if err := sleepCtx(ctx, waitTime); err != nil {
				return err
			}
			continue
		}

		meetsGridStep, err := e.meetGridStepCondition(ctx)
		if err != nil {
			e.logger.Error("error checking grid step condition", "error", err)
			if err := sleepCtx(ctx, time.Second); err != nil {
				return err
			}
			continue
		}
		if !meetsGridStep {
			if err := sleepCtx(ctx, time.Second); err != nil {
				return err
			}
			continue
		}

		if err := e.placeAndMonitorOpenOrder(ctx); err != nil {
			return err
		}

		e.mu.Lock()
		e.lastCloseOrders++
		e.mu.Unlock()
	}

	return nil
}

// refreshActiveCloseOrders refetches active orders on the close side and
// reconciles the timestamp index, matching run()'s per-iteration
// active_close_orders/close_orders_timestamps bookkeeping.
func (e *Engine) refreshActiveCloseOrders(ctx context.Context) error {
	activeOrders, err := e.adapter.GetActiveOrders(ctx, e.cfg.CloseSide())
	if err != nil {
		return fmt.Errorf("get active orders: %w", err)
	}

	now := time.Now()
	closeOrders := make([]types.CloseOrder, 0, len(activeOrders))
	seen := make(map[string]struct{}, len(activeOrders))

	e.mu.Lock()
	for _, o := range activeOrders {
		seen[o.OrderID] = struct{}{}
		ts, ok := e.closeOrderTimestamps[o.OrderID]
		if !ok {
			ts = now
			e.closeOrderTimestamps[o.OrderID] = ts
		}
		closeOrders = append(closeOrders, types.CloseOrder{
			ID:        o.OrderID,
			Price:     o.Price,
			Size:      o.Size,
			CreatedAt: ts,
		})
	}
	for id := range e.closeOrderTimestamps {
		if _, ok := seen[id]; !ok {
			delete(e.closeOrderTimestamps, id)
		}
	}
	e.activeCloseOrders = closeOrders
	e.mu.Unlock()

	return nil
}

// calculateWaitTime implements the exact cool-down formula of
// _calculate_wait_time: wait_time/4 below 1/6 utilization, /2 below 1/3,
// the configured wait_time below 2/3, 2x above that, and a 1s cap once
// max_orders is reached — forced to 0 if the close-order count just
// decreased (a fill freed up room immediately).
func (e *Engine) calculateWaitTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	activeCount := len(e.activeCloseOrders)

	if activeCount < e.lastCloseOrders {
		e.lastCloseOrders = activeCount
		return 0
	}
	e.lastCloseOrders = activeCount

	if activeCount >= e.cfg.MaxOrders {
		return time.Second
	}

	ratio := float64(activeCount) / float64(e.cfg.MaxOrders)

	var coolDown time.Duration
	switch {
	case ratio >= 2.0/3.0:
		coolDown = 2 * e.cfg.WaitTime
	case ratio >= 1.0/3.0:
		coolDown = e.cfg.WaitTime
	case ratio >= 1.0/6.0:
		coolDown = e.cfg.WaitTime / 2
	default:
		coolDown = e.cfg.WaitTime / 4
	}

	if e.lastOpenOrderTime.IsZero() && activeCount > 0 {
		e.lastOpenOrderTime = time.Now()
	}

	if time.Since(e.lastOpenOrderTime) > coolDown {
		return 0
	}
	return time.Second
}

// logStatusPeriodically logs position/close-order status every 60s and
// detects a position mismatch, matching _log_status_periodically.
func (e *Engine) logStatusPeriodically(ctx context.Context) (bool, error) {
	e.mu.RLock()
	due := time.Since(e.lastLogTime) > 60*time.Second || e.lastLogTime.IsZero()
	e.mu.RUnlock()
	if !due {
		return false, nil
	}

	position, err := e.adapter.GetAccountPosition(ctx)
	if err != nil {
		return false, fmt.Errorf("get account position: %w", err)
	}
	position = position.Abs()

	e.mu.Lock()
	activeCloseAmount := decimal.Zero
	for _, o := range e.activeCloseOrders {
		activeCloseAmount = activeCloseAmount.Add(o.Size)
	}
	orderCount := len(e.activeCloseOrders)
	e.position = position
	e.lastLogTime = time.Now()
	e.mu.Unlock()

	e.logger.Info("status",
		"position", position.String(),
		"active_closing_amount", activeCloseAmount.String(),
		"order_count", orderCount,
	)

	threshold := e.cfg.Quantity.Mul(decimal.NewFromInt(2))
	if position.Sub(activeCloseAmount).Abs().GreaterThan(threshold) {
		msg := fmt.Sprintf(
			"ERROR: [%s_%s] Position mismatch detected\n"+
				"Please manually rebalance your position and take-profit orders\n"+
				"current position: %s | active closing amount: %s | order quantity: %d",
			e.cfg.Venue, e.cfg.Ticker, position, activeCloseAmount, orderCount,
		)
		e.logger.Error(msg)
		e.notify(msg)
		e.shutdownRequested.Store(true)
		return true, nil
	}

	return false, nil
}

// checkPriceCondition evaluates the configured stop/pause prices against
// the current BBO, matching _check_price_condition. A StopPrice/PausePrice
// of -1 disables the corresponding gate.
func (e *Engine) checkPriceCondition(ctx context.Context) (stopTrading, pauseTrading bool, err error) {
	negOne := decimal.NewFromInt(-1)
	if e.cfg.StopPrice.Equal(negOne) && e.cfg.PausePrice.Equal(negOne) {
		return false, false, nil
	}

	bestBid, bestAsk, err := e.adapter.FetchBBOPrices(ctx)
	if err != nil {
		return false, false, err
	}
	if bestBid.LessThanOrEqual(decimal.Zero) || bestAsk.LessThanOrEqual(decimal.Zero) || bestBid.GreaterThanOrEqual(bestAsk) {
		return false, false, fmt.Errorf("no bid/ask data available")
	}

	if !e.cfg.StopPrice.Equal(negOne) {
		switch e.cfg.Direction {
		case types.Buy:
			stopTrading = bestAsk.GreaterThanOrEqual(e.cfg.StopPrice)
		case types.Sell:
			stopTrading = bestBid.LessThanOrEqual(e.cfg.StopPrice)
		}
	}

	if !e.cfg.PausePrice.Equal(negOne) {
		switch e.cfg.Direction {
		case types.Buy:
			pauseTrading = bestAsk.GreaterThanOrEqual(e.cfg.PausePrice)
		case types.Sell:
			pauseTrading = bestBid.LessThanOrEqual(e.cfg.PausePrice)
		}
	}

	return stopTrading, pauseTrading, nil
}

// meetGridStepCondition checks whether the next open order's implied close
// price would sit far enough from the nearest resting close order, matching
// _meet_grid_step_condition. With no resting close orders the grid has
// nothing to space against, so it always proceeds.
func (e *Engine) meetGridStepCondition(ctx context.Context) (bool, error) {
	e.mu.RLock()
	orders := make([]types.CloseOrder, len(e.activeCloseOrders))
	copy(orders, e.activeCloseOrders)
	e.mu.RUnlock()

	if len(orders) == 0 {
		return true, nil
	}

	var nextClosePrice decimal.Decimal
	switch e.cfg.Direction {
	case types.Buy:
		nextClosePrice = orders[0].Price
		for _, o := range orders[1:] {
			if o.Price.LessThan(nextClosePrice) {
				nextClosePrice = o.Price
			}
		}
	case types.Sell:
		nextClosePrice = orders[0].Price
		for _, o := range orders[1:] {
			if o.Price.GreaterThan(nextClosePrice) {
				nextClosePrice = o.Price
			}
		}
	}

	bestBid, bestAsk, err := e.adapter.FetchBBOPrices(ctx)
	if err != nil {
		return false, err
	}
	if bestBid.LessThanOrEqual(decimal.Zero) || bestAsk.LessThanOrEqual(decimal.Zero) || bestBid.GreaterThanOrEqual(bestAsk) {
		return false, fmt.Errorf("no bid/ask data available")
	}

	hundred := decimal.NewFromInt(100)
	gridStepFactor := decimal.NewFromInt(1).Add(e.cfg.GridStepPct.Div(hundred))

	switch e.cfg.Direction {
	case types.Buy:
		newClosePrice := bestAsk.Mul(decimal.NewFromInt(1).Add(e.cfg.TakeProfitPct.Div(hundred)))
		return nextClosePrice.Div(newClosePrice).GreaterThan(gridStepFactor), nil
	case types.Sell:
		newClosePrice := bestBid.Mul(decimal.NewFromInt(1).Sub(e.cfg.TakeProfitPct.Div(hundred)))
		return newClosePrice.Div(nextClosePrice).GreaterThan(gridStepFactor), nil
	default:
		return false, fmt.Errorf("invalid direction: %s", e.cfg.Direction)
	}
}

// checkAndRefreshTimeoutCloseOrders cancels and reprices close orders that
// have rested for more than 10 minutes, halving the effective take-profit
// requirement so the refreshed order sits closer to market. Gated behind
// RefreshStaleCloses (disabled by default — the original leaves the
// equivalent call commented out in run()). Errors are logged, not
// propagated: a failed refresh should not take down the whole engine.
func (e *Engine) checkAndRefreshTimeoutCloseOrders(ctx context.Context) {
	const timeout = 10 * time.Minute

	e.mu.RLock()
	var toRefresh []types.CloseOrder
	now := time.Now()
	for _, o := range e.activeCloseOrders {
		if now.Sub(o.CreatedAt) > timeout {
			toRefresh = append(toRefresh, o)
		}
	}
	e.mu.RUnlock()

	for _, o := range toRefresh {
		if _, err := e.adapter.CancelOrder(ctx, o.ID); err != nil {
			e.logger.Error("failed to cancel timeout close order", "order_id", o.ID, "error", err)
			continue
		}

		bestBid, bestAsk, err := e.adapter.FetchBBOPrices(ctx)
		if err != nil || bestBid.LessThanOrEqual(decimal.Zero) || bestAsk.LessThanOrEqual(decimal.Zero) || bestBid.GreaterThanOrEqual(bestAsk) {
			e.logger.Error("invalid bid/ask prices, skipping timeout refresh", "order_id", o.ID)
			continue
		}

		hundred := decimal.NewFromInt(100)
		halfTakeProfit := e.cfg.TakeProfitPct.Div(decimal.NewFromInt(2))

		var newPrice decimal.Decimal
		closeSide := e.cfg.CloseSide()
		if closeSide == types.Sell {
			newPrice = bestBid.Mul(decimal.NewFromInt(1).Add(halfTakeProfit.Div(hundred)))
		} else {
			newPrice = bestAsk.Mul(decimal.NewFromInt(1).Sub(halfTakeProfit.Div(hundred)))
		}

		result, err := e.adapter.PlaceCloseOrder(ctx, types.OrderIntent{
			ContractID: e.cfg.ContractID,
			Quantity:   o.Size,
			Price:      newPrice,
			Side:       closeSide,
			Kind:       types.KindClosePostOnly,
		})
		if err != nil || !result.Success {
			e.logger.Error("failed to place refreshed close order", "order_id", o.ID, "error", err)
			continue
		}

		e.mu.Lock()
		delete(e.closeOrderTimestamps, o.ID)
		if result.OrderID != "" {
			e.closeOrderTimestamps[result.OrderID] = now
		}
		e.mu.Unlock()
	}
}

func (e *Engine) notify(msg string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Send(notify.Message{Severity: notify.SeverityError, Text: msg})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
