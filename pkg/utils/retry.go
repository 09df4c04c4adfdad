package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy bounds how often and how patiently an operation is retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Multiplier grows the delay after each failed attempt. Values <= 1 keep it fixed.
	Multiplier float64
}

// DelayFor returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	d := p.Delay
	if p.Multiplier <= 1 {
		return d
	}
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so Retry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry runs op until it succeeds, returns a Permanent error, the policy is
// exhausted or ctx is done. attempt starts at 1.
func Retry(ctx context.Context, policy RetryPolicy, name string, op func(ctx context.Context, attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return nil
		}
		slog.Warn("attempt failed", "op", name, "attempt", attempt, "max_attempts", attempts, "error", err)

		if IsPermanent(err) {
			return fmt.Errorf("%s: %w", name, err)
		}
		if attempt == attempts {
			break
		}
		if werr := wait(ctx, policy.DelayFor(attempt)); werr != nil {
			return fmt.Errorf("%s: interrupted after %d attempts: %w", name, attempt, errors.Join(err, werr))
		}
	}

	return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempts, err)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	return wait(ctx, d)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
