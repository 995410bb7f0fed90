package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"gridbot/internal/venue"
	"gridbot/pkg/types"
)

// fakeAdapter is a minimal venue.Adapter stand-in for exercising engine
// logic without a real exchange connection. The zero value behaves like the
// original fixed-response fake (every placement succeeds); tests that need
// to drive a specific scenario (a particular open-order result, a cancel
// confirming a partial fill, a failed close) set the *Result/*Err fields
// directly and inspect the *Calls slices afterward.
type fakeAdapter struct {
	bestBid, bestAsk decimal.Decimal
	position         decimal.Decimal
	activeOrders     []types.OrderInfo
	bboErr           error
	handler          venue.OrderUpdateHandler

	openOrderResult types.OrderResult
	openOrderErr    error

	closeOrderResult types.OrderResult
	closeOrderErr    error
	closeOrderCalls  []types.OrderIntent

	marketOrderResult types.OrderResult
	marketOrderErr    error
	marketOrderCalls  []types.OrderIntent

	cancelResult types.OrderResult
	cancelErr    error
	cancelCalls  []string
	// cancelSideEffect, if set, runs after recording the call, modeling the
	// order-update stream delivering the cancel's final fill report the way
	// a real venue would moments after the REST cancel call returns.
	cancelSideEffect func()

	orderInfoResult types.OrderInfo
	orderInfoErr    error
	orderInfoFunc   func(orderID string) (types.OrderInfo, error)
}

func (f *fakeAdapter) Connect(ctx context.Context) error    { return nil }
func (f *fakeAdapter) Disconnect(ctx context.Context) error { return nil }

func (f *fakeAdapter) GetContractAttributes() (string, decimal.Decimal, error) {
	return "TEST", decimal.NewFromFloat(0.01), nil
}

func (f *fakeAdapter) FetchBBOPrices(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return f.bestBid, f.bestAsk, f.bboErr
}

func (f *fakeAdapter) GetOrderPrice(ctx context.Context, side types.Side) (decimal.Decimal, error) {
	if side == types.Buy {
		return f.bestAsk.Sub(decimal.NewFromFloat(0.01)), nil
	}
	return f.bestBid.Add(decimal.NewFromFloat(0.01)), nil
}

func (f *fakeAdapter) PlacePostOnlyOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	return types.OrderResult{Success: true}, nil
}

func (f *fakeAdapter) PlaceOpenOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	if f.openOrderErr != nil {
		return types.OrderResult{}, f.openOrderErr
	}
	if f.openOrderResult.OrderID == "" && f.openOrderResult.Status == "" && !f.openOrderResult.Success {
		return types.OrderResult{Success: true}, nil
	}
	return f.openOrderResult, nil
}

func (f *fakeAdapter) PlaceCloseOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	f.closeOrderCalls = append(f.closeOrderCalls, intent)
	if f.closeOrderErr != nil {
		return types.OrderResult{}, f.closeOrderErr
	}
	if f.closeOrderResult.OrderID == "" && !f.closeOrderResult.Success {
		return types.OrderResult{Success: true, OrderID: "close-1"}, nil
	}
	return f.closeOrderResult, nil
}

func (f *fakeAdapter) PlaceMarketOrder(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error) {
	f.marketOrderCalls = append(f.marketOrderCalls, intent)
	if f.marketOrderErr != nil {
		return types.OrderResult{}, f.marketOrderErr
	}
	if f.marketOrderResult.OrderID == "" && !f.marketOrderResult.Success {
		return types.OrderResult{Success: true}, nil
	}
	return f.marketOrderResult, nil
}

func (f *fakeAdapter) CancelOrder(ctx context.Context, orderID string) (types.OrderResult, error) {
	f.cancelCalls = append(f.cancelCalls, orderID)
	if f.cancelSideEffect != nil {
		f.cancelSideEffect()
	}
	if f.cancelErr != nil {
		return types.OrderResult{}, f.cancelErr
	}
	if f.cancelResult.OrderID == "" && !f.cancelResult.Success {
		return types.OrderResult{Success: true}, nil
	}
	return f.cancelResult, nil
}

func (f *fakeAdapter) GetOrderInfo(ctx context.Context, orderID string) (types.OrderInfo, error) {
	if f.orderInfoFunc != nil {
		return f.orderInfoFunc(orderID)
	}
	if f.orderInfoErr != nil {
		return types.OrderInfo{}, f.orderInfoErr
	}
	if f.orderInfoResult.OrderID == "" && f.orderInfoResult.Status == "" {
		return types.OrderInfo{OrderID: orderID}, nil
	}
	return f.orderInfoResult, nil
}

func (f *fakeAdapter) GetActiveOrders(ctx context.Context, side types.Side) ([]types.OrderInfo, error) {
	return f.activeOrders, nil
}

func (f *fakeAdapter) GetAccountPosition(ctx context.Context) (decimal.Decimal, error) {
	return f.position, nil
}

func (f *fakeAdapter) SetupOrderUpdateHandler(handler venue.OrderUpdateHandler) {
	f.handler = handler
}
