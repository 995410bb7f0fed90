package engine

import (
	"context"
	"testing"
	"time"
)

func TestEventSetThenWaitReturnsImmediately(t *testing.T) {
	e := newEvent()
	e.Set()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := e.Wait(ctx); err != nil {
		t.Fatalf("Wait() after Set() = %v, want nil", err)
	}
	if !e.IsSet() {
		t.Error("IsSet() = false after Set()")
	}
}

func TestEventWaitBlocksUntilSet(t *testing.T) {
	e := newEvent()

	done := make(chan error, 1)
	go func() {
		done <- e.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Wait() returned before Set() was called")
	case <-time.After(20 * time.Millisecond):
	}

	e.Set()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after Set()")
	}
}

func TestEventWaitRespectsContextCancellation(t *testing.T) {
	e := newEvent()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := e.Wait(ctx); err == nil {
		t.Error("Wait() = nil, want context deadline error")
	}
}

func TestEventClearAllowsReWaiting(t *testing.T) {
	e := newEvent()
	e.Set()
	e.Clear()

	if e.IsSet() {
		t.Error("IsSet() = true after Clear()")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Wait(ctx); err == nil {
		t.Error("Wait() = nil after Clear(), want it to block until next Set()")
	}

	e.Set()
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() after re-Set() = %v, want nil", err)
	}
}

func TestEventSetIsIdempotent(t *testing.T) {
	e := newEvent()
	e.Set()
	e.Set() // must not panic on double-close

	if !e.IsSet() {
		t.Error("IsSet() = false after double Set()")
	}
}
