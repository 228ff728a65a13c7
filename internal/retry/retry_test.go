package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoReturnsLastErrorAfterExhaustion(t *testing.T) {
	terminal := errors.New("still broken")
	calls := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	err := p.Do(context.Background(), func() error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Errorf("expected terminal error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}
	calls := 0

	err := p.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	sentinel := errors.New("bad data")
	calls := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	err := p.Do(context.Background(), func() error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	p := Policy{}

	_ = p.Do(context.Background(), func() error {
		calls++
		return errors.New("boom")
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
