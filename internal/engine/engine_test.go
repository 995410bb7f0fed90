package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testTradingConfig() types.TradingConfig {
	return types.TradingConfig{
		Ticker:        "TEST",
		Quantity:      dec("1"),
		TakeProfitPct: dec("0.5"),
		Direction:     types.Buy,
		MaxOrders:     6,
		WaitTime:      30 * time.Second,
		Venue:         "fake",
		GridStepPct:   dec("0.1"),
		StopPrice:     dec("-1"),
		PausePrice:    dec("-1"),
	}
}

func newTestEngine(adapter *fakeAdapter) *Engine {
	return New(testTradingConfig(), adapter, nil, testLogger())
}

func TestCalculateWaitTimeRatioThresholds(t *testing.T) {
	cases := []struct {
		name        string
		activeCount int
		wantZero    bool
	}{
		{"empty below 1/6", 0, true}, // lastOpenOrderTime is zero, so elapsed time exceeds any cooldown
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(&fakeAdapter{})
			e.activeCloseOrders = make([]types.CloseOrder, tc.activeCount)
			got := e.calculateWaitTime()
			if (got == 0) != tc.wantZero {
				t.Errorf("calculateWaitTime() = %v, want zero=%v", got, tc.wantZero)
			}
		})
	}
}

func TestCalculateWaitTimeDropsToZeroOnFill(t *testing.T) {
	e := newTestEngine(&fakeAdapter{})
	e.activeCloseOrders = make([]types.CloseOrder, 3)
	e.lastCloseOrders = 4 // previous tick had one more — a fill just happened

	got := e.calculateWaitTime()
	if got != 0 {
		t.Errorf("calculateWaitTime() = %v, want 0 after a close-order count decrease", got)
	}
	if e.lastCloseOrders != 3 {
		t.Errorf("lastCloseOrders = %d, want 3", e.lastCloseOrders)
	}
}

func TestCalculateWaitTimeCapsAtMaxOrders(t *testing.T) {
	e := newTestEngine(&fakeAdapter{})
	e.cfg.MaxOrders = 4
	e.activeCloseOrders = make([]types.CloseOrder, 4)
	e.lastCloseOrders = 4

	got := e.calculateWaitTime()
	if got != time.Second {
		t.Errorf("calculateWaitTime() = %v, want 1s cap at max_orders", got)
	}
}

func TestCheckPriceConditionDisabledWhenBothNegOne(t *testing.T) {
	e := newTestEngine(&fakeAdapter{})
	stop, pause, err := e.checkPriceCondition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop || pause {
		t.Errorf("stop=%v pause=%v, want both false when stop/pause prices are -1", stop, pause)
	}
}

func TestCheckPriceConditionBuyStopTriggersOnAskAboveStop(t *testing.T) {
	e := newTestEngine(&fakeAdapter{
		bestBid: dec("99"),
		bestAsk: dec("100"),
	})
	e.cfg.StopPrice = dec("95")
	e.cfg.Direction = types.Buy

	stop, _, err := e.checkPriceCondition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stop {
		t.Error("expected stop=true when best ask >= stop price on a buy grid")
	}
}

func TestCheckPriceConditionSellStopTriggersOnBidBelowStop(t *testing.T) {
	e := newTestEngine(&fakeAdapter{
		bestBid: dec("90"),
		bestAsk: dec("91"),
	})
	e.cfg.StopPrice = dec("95")
	e.cfg.Direction = types.Sell

	stop, _, err := e.checkPriceCondition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stop {
		t.Error("expected stop=true when best bid <= stop price on a sell grid")
	}
}

func TestMeetGridStepConditionNoRestingOrders(t *testing.T) {
	e := newTestEngine(&fakeAdapter{bestBid: dec("99"), bestAsk: dec("100")})
	ok, err := e.meetGridStepCondition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected true with no resting close orders to space against")
	}
}

func TestMeetGridStepConditionBuyRejectsTooClose(t *testing.T) {
	e := newTestEngine(&fakeAdapter{bestBid: dec("99"), bestAsk: dec("100")})
	e.cfg.Direction = types.Buy
	e.cfg.TakeProfitPct = dec("0.5")
	e.cfg.GridStepPct = dec("50") // demand a huge spacing so a near order fails
	e.activeCloseOrders = []types.CloseOrder{{ID: "c1", Price: dec("100.5")}}

	ok, err := e.meetGridStepCondition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected false when the nearest close order sits closer than grid_step requires")
	}
}

func TestLogStatusPeriodicallyDetectsMismatch(t *testing.T) {
	e := newTestEngine(&fakeAdapter{position: dec("10")})
	e.cfg.Quantity = dec("1")
	e.activeCloseOrders = []types.CloseOrder{{ID: "c1", Size: dec("1")}}

	mismatch, err := e.logStatusPeriodically(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mismatch {
		t.Error("expected mismatch: |10 - 1| > 2*1")
	}
	if !e.shutdownRequested.Load() {
		t.Error("expected shutdownRequested to be set on mismatch")
	}
}

func TestLogStatusPeriodicallyNoMismatchWithinTolerance(t *testing.T) {
	e := newTestEngine(&fakeAdapter{position: dec("2")})
	e.cfg.Quantity = dec("1")
	e.activeCloseOrders = []types.CloseOrder{{ID: "c1", Size: dec("1")}}

	mismatch, err := e.logStatusPeriodically(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mismatch {
		t.Error("expected no mismatch: |2 - 1| == 1, not > 2*1")
	}
}

func TestLogStatusPeriodicallySkippedBeforeInterval(t *testing.T) {
	e := newTestEngine(&fakeAdapter{position: dec("10")})
	e.lastLogTime = time.Now()

	mismatch, err := e.logStatusPeriodically(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mismatch {
		t.Error("expected no check to run before the 60s interval elapses")
	}
}
