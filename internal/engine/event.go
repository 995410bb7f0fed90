package engine

import (
	"context"
	"sync"
)

// event is a resettable one-shot signal, the Go equivalent of Python's
// asyncio.Event as used by trading_bot.py's order_filled_event/
// order_canceled_event. The order-update handler runs on the adapter's own
// goroutine (the lighter WS read loop), so Set is safe to call
// concurrently with Wait/Clear from the engine's own goroutine — there is
// no separate event-loop thread to marshal onto via call_soon_threadsafe,
// closing a channel already provides that handoff.
type event struct {
	mu    sync.Mutex
	ch    chan struct{}
	isSet bool
}

func newEvent() *event {
	return &event{ch: make(chan struct{})}
}

func (e *event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isSet {
		e.isSet = true
		close(e.ch)
	}
}

func (e *event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isSet {
		e.isSet = false
		e.ch = make(chan struct{})
	}
}

func (e *event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSet
}

// Wait blocks until Set is called, ctx is canceled, or the channel already
// closed by a prior Set (IsSet() observed true).
func (e *event) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
