package venue

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"gridbot/pkg/types"
)

// safetyCheckEvery matches grvt.py's `if attempt % 5 == 0` cadence.
const safetyCheckEvery = 5

// OpenLoop holds the callbacks PlaceOpenWithSafety needs from an adapter.
// It is the Go expression of original_source/exchanges/grvt.py's
// place_open_order attempt loop, reused verbatim by every adapter per
// spec.md's requirement that the attempt-5 duplicate-order safety check be
// part of the uniform adapter contract (not a GRVT-only behavior).
type OpenLoop struct {
	Side             types.Side
	Quantity         decimal.Decimal
	ContractID       string
	GetOrderPrice    func(ctx context.Context, side types.Side) (decimal.Decimal, error)
	CountActiveOpen  func(ctx context.Context) (int, error)
	PlacePostOnly    func(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error)
}

// PlaceOpenWithSafety places a post-only open order, retrying on REJECTED
// and re-validating that no more than one open-side order is active every
// safetyCheckEvery attempts.
func PlaceOpenWithSafety(ctx context.Context, l OpenLoop) (types.OrderResult, error) {
	attempt := 0
	for {
		attempt++
		if err := ctx.Err(); err != nil {
			return types.OrderResult{}, err
		}

		if attempt%safetyCheckEvery == 0 {
			count, err := l.CountActiveOpen(ctx)
			if err != nil {
				return types.OrderResult{}, fmt.Errorf("safety check: %w", err)
			}
			if count > 1 {
				return types.OrderResult{}, fmt.Errorf("%w: active open orders abnormal: %d", ErrSafety, count)
			}
		}

		price, err := l.GetOrderPrice(ctx, l.Side)
		if err != nil {
			return types.OrderResult{}, err
		}

		result, err := l.PlacePostOnly(ctx, types.OrderIntent{
			ContractID: l.ContractID,
			Quantity:   l.Quantity,
			Price:      price,
			Side:       l.Side,
			Kind:       types.KindOpenPostOnly,
		})
		if err != nil {
			continue
		}

		switch result.Status {
		case types.StatusRejected:
			continue
		case types.StatusOpen, types.StatusFilled:
			result.Side = l.Side
			result.Size = l.Quantity
			result.Price = price
			return result, nil
		case types.StatusPending:
			return types.OrderResult{}, fmt.Errorf("%w: order not processed after confirmation window", ErrOrderTimeout)
		default:
			return types.OrderResult{}, fmt.Errorf("unexpected order status: %s", result.Status)
		}
	}
}

// CloseLoop holds the callbacks PlaceCloseWithSafety needs.
type CloseLoop struct {
	Side              types.Side
	Quantity          decimal.Decimal
	ContractID        string
	Price             decimal.Decimal
	BestBidAsk        func(ctx context.Context) (bestBid, bestAsk decimal.Decimal, err error)
	TickSize          decimal.Decimal
	CountActiveClose  func(ctx context.Context) (int, error)
	PlacePostOnly     func(ctx context.Context, intent types.OrderIntent) (types.OrderResult, error)
}

// PlaceCloseWithSafety places a post-only close order, adjusting the
// requested price away from a cross against the current BBO, retrying on
// REJECTED, and re-validating the close-order count delta every
// safetyCheckEvery attempts — transcribing grvt.py's place_close_order loop.
func PlaceCloseWithSafety(ctx context.Context, l CloseLoop) (types.OrderResult, error) {
	attempt := 0
	baseline, err := l.CountActiveClose(ctx)
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("baseline close count: %w", err)
	}

	for {
		attempt++
		if err := ctx.Err(); err != nil {
			return types.OrderResult{}, err
		}

		if attempt%safetyCheckEvery == 0 {
			current, err := l.CountActiveClose(ctx)
			if err != nil {
				return types.OrderResult{}, fmt.Errorf("safety check: %w", err)
			}
			if current-baseline > 1 {
				return types.OrderResult{}, fmt.Errorf("%w: active close orders abnormal: %d -> %d", ErrSafety, baseline, current)
			}
			baseline = current
		}

		bestBid, bestAsk, err := l.BestBidAsk(ctx)
		if err != nil {
			return types.OrderResult{}, err
		}

		adjusted := l.Price
		switch {
		case l.Side == types.Sell && l.Price.LessThanOrEqual(bestBid):
			adjusted = bestBid.Add(l.TickSize)
		case l.Side == types.Buy && l.Price.GreaterThanOrEqual(bestAsk):
			adjusted = bestAsk.Sub(l.TickSize)
		}
		adjusted = roundToTickDecimal(adjusted, l.TickSize)

		result, err := l.PlacePostOnly(ctx, types.OrderIntent{
			ContractID: l.ContractID,
			Quantity:   l.Quantity,
			Price:      adjusted,
			Side:       l.Side,
			Kind:       types.KindClosePostOnly,
		})
		if err != nil {
			continue
		}

		switch result.Status {
		case types.StatusRejected:
			continue
		case types.StatusOpen, types.StatusFilled:
			result.Side = l.Side
			result.Size = l.Quantity
			result.Price = adjusted
			return result, nil
		case types.StatusPending:
			return types.OrderResult{}, fmt.Errorf("%w: order not processed after confirmation window", ErrOrderTimeout)
		default:
			return types.OrderResult{}, fmt.Errorf("unexpected order status: %s", result.Status)
		}
	}
}

func roundToTickDecimal(price, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return price
	}
	return price.DivRound(tick, 0).Mul(tick)
}
