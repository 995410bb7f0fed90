package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

func TestPlaceOpenWithSafetyRetriesOnRejected(t *testing.T) {
	attempts := 0
	loop := OpenLoop{
		Side:       types.Buy,
		Quantity:   decimal.NewFromInt(1),
		ContractID: "c1",
		GetOrderPrice: func(ctx context.Context, side types.Side) (decimal.Decimal, error) {
			return decimal.NewFromInt(100), nil
		},
		CountActiveOpen: func(ctx context.Context) (int, error) { return 0, nil },
		PlacePostOnly: func(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
			attempts++
			if attempts < 3 {
				return types.OrderResult{Status: types.StatusRejected}, nil
			}
			return types.OrderResult{Status: types.StatusOpen, OrderID: "o1"}, nil
		},
	}

	result, err := PlaceOpenWithSafety(context.Background(), loop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if result.OrderID != "o1" {
		t.Errorf("OrderID = %q, want o1", result.OrderID)
	}
	if !result.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Price = %s, want 100", result.Price)
	}
}

func TestPlaceOpenWithSafetyFailsSafetyCheckOnAttemptFive(t *testing.T) {
	attempts := 0
	loop := OpenLoop{
		Side:       types.Buy,
		Quantity:   decimal.NewFromInt(1),
		ContractID: "c1",
		GetOrderPrice: func(ctx context.Context, side types.Side) (decimal.Decimal, error) {
			return decimal.NewFromInt(100), nil
		},
		CountActiveOpen: func(ctx context.Context) (int, error) { return 2, nil }, // abnormal: > 1
		PlacePostOnly: func(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
			attempts++
			return types.OrderResult{Status: types.StatusRejected}, nil
		},
	}

	_, err := PlaceOpenWithSafety(context.Background(), loop)
	if !errors.Is(err, ErrSafety) {
		t.Fatalf("err = %v, want ErrSafety", err)
	}
	if attempts != 4 {
		t.Errorf("attempts before the 5th-attempt safety check fired = %d, want 4", attempts)
	}
}

func TestPlaceOpenWithSafetyReturnsPendingAsTimeout(t *testing.T) {
	loop := OpenLoop{
		Side:       types.Buy,
		Quantity:   decimal.NewFromInt(1),
		ContractID: "c1",
		GetOrderPrice: func(ctx context.Context, side types.Side) (decimal.Decimal, error) {
			return decimal.NewFromInt(100), nil
		},
		CountActiveOpen: func(ctx context.Context) (int, error) { return 0, nil },
		PlacePostOnly: func(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
			return types.OrderResult{Status: types.StatusPending}, nil
		},
	}

	_, err := PlaceOpenWithSafety(context.Background(), loop)
	if !errors.Is(err, ErrOrderTimeout) {
		t.Fatalf("err = %v, want ErrOrderTimeout", err)
	}
}

func TestPlaceCloseWithSafetyAdjustsPriceAwayFromCross(t *testing.T) {
	loop := CloseLoop{
		Side:       types.Sell,
		Quantity:   decimal.NewFromInt(1),
		ContractID: "c1",
		Price:      decimal.NewFromInt(99), // at/below best bid: must be pushed above it
		TickSize:   decimal.NewFromFloat(0.1),
		BestBidAsk: func(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
			return decimal.NewFromInt(100), decimal.NewFromInt(101), nil
		},
		CountActiveClose: func(ctx context.Context) (int, error) { return 0, nil },
		PlacePostOnly: func(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
			if !intent.Price.GreaterThan(decimal.NewFromInt(100)) {
				t.Errorf("adjusted price %s did not clear best bid 100", intent.Price)
			}
			return types.OrderResult{Status: types.StatusOpen, OrderID: "o2"}, nil
		},
	}

	result, err := PlaceCloseWithSafety(context.Background(), loop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OrderID != "o2" {
		t.Errorf("OrderID = %q, want o2", result.OrderID)
	}
}

func TestPlaceCloseWithSafetyFailsOnAbnormalCountDelta(t *testing.T) {
	calls := 0
	countCalls := 0
	loop := CloseLoop{
		Side:       types.Sell,
		Quantity:   decimal.NewFromInt(1),
		ContractID: "c1",
		Price:      decimal.NewFromInt(105),
		TickSize:   decimal.NewFromFloat(0.1),
		BestBidAsk: func(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
			return decimal.NewFromInt(100), decimal.NewFromInt(101), nil
		},
		CountActiveClose: func(ctx context.Context) (int, error) {
			countCalls++
			if countCalls == 1 {
				return 0, nil // baseline
			}
			return 3, nil // jumped by more than 1 between checks
		},
		PlacePostOnly: func(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
			calls++
			return types.OrderResult{Status: types.StatusRejected}, nil
		},
	}

	_, err := PlaceCloseWithSafety(context.Background(), loop)
	if !errors.Is(err, ErrSafety) {
		t.Fatalf("err = %v, want ErrSafety", err)
	}
	if calls != 4 {
		t.Errorf("calls before the 5th-attempt safety check fired = %d, want 4", calls)
	}
}
