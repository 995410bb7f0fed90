package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), Config{Attempts: 3, Delay: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), Config{Attempts: 3, Delay: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryReraisesLastErrorWhenExhausted(t *testing.T) {
	wantErr := errors.New("still failing")
	_, err := WithRetry(context.Background(), Config{Attempts: 2, Delay: time.Millisecond, Reraise: true}, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("got error %v, want it to wrap %v", err, wantErr)
	}
}

func TestWithRetryReturnsZeroValueWithoutReraise(t *testing.T) {
	got, err := WithRetry(context.Background(), Config{Attempts: 2, Delay: time.Millisecond}, func(ctx context.Context) (int, error) {
		return 0, errors.New("fails every time")
	})
	if err != nil {
		t.Fatalf("expected nil error when Reraise is false, got %v", err)
	}
	if got != 0 {
		t.Errorf("got %d, want zero value", got)
	}
}

func TestWithRetryStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := WithRetry(ctx, Config{Attempts: 5, Delay: 50 * time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (should stop waiting once context is done)", calls)
	}
}
