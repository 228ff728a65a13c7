// Package retry implements a bounded retry policy with exponential backoff.
// Transient provider failures are wrapped in one well-defined policy instead
// of ad hoc retry loops inside business logic.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds retries of a single operation.
type Policy struct {
	MaxAttempts int           // total attempts, minimum 1
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // cap for the doubled delay
}

// DefaultPolicy retries three times with 500ms base backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as non-retryable: Do returns it immediately. Data
// errors (dimension mismatches, bad arguments) will not resolve by retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, attempts are exhausted, or ctx is done. The
// last error is returned unwrapped so callers keep the provider detail.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		if attempt == attempts {
			break
		}
		if delay <= 0 {
			delay = 100 * time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
