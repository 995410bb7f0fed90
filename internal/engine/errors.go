package engine

import "errors"

// ErrPositionMismatch is raised when the absolute gap between the live
// position and the total size resting in close orders exceeds 2x the
// configured quantity — the engine treats this as unrecoverable and
// initiates a graceful shutdown, matching trading_bot.py's
// "Position mismatch detected" branch.
var ErrPositionMismatch = errors.New("engine: position mismatch detected")

// ErrStopPriceHit is raised when the configured stop price has been crossed,
// matching the stop_trading branch of _check_price_condition.
var ErrStopPriceHit = errors.New("engine: stop price triggered")

// ErrCloseOrderFailed wraps a failed close-order placement; the engine
// cannot safely continue without a resting close order for a filled open,
// so this is treated as fatal (matching the original's raised Exception).
var ErrCloseOrderFailed = errors.New("engine: failed to place close order")
