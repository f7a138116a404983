// Package retry provides the exponential backoff used to retry failed
// deliveries before they are reported as failures.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Strategy configures how often and how patiently a delivery is retried.
//
// The delay after attempt n is min(BaseDelay * ExponentialBase^(n-1), MaxDelay).
// With the defaults (500ms base, 2.0 exponential, 5s max, 3 attempts):
//
//	Attempt 1 fails: wait 500ms
//	Attempt 2 fails: wait 1s
//	Attempt 3 fails: give up
type Strategy struct {
	MaxAttempts     int           // Total attempts including the first; < 1 means 1
	BaseDelay       time.Duration // Wait after the first failed attempt
	MaxDelay        time.Duration // Cap on any single wait
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the strategy the server uses unless configured otherwise.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     3,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		ExponentialBase: 2.0,
	}
}

// None returns a strategy that never retries.
func None() Strategy {
	return Strategy{MaxAttempts: 1}
}

// Delay returns how long to wait after the given failed attempt (1-based).
func (s Strategy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return min(s.BaseDelay, s.maxDelay())
	}
	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attempt-1))
	if delay > float64(s.maxDelay()) {
		return s.maxDelay()
	}
	return time.Duration(delay)
}

// IsRetryable reports whether another attempt follows the given one.
func (s Strategy) IsRetryable(attempt int) bool {
	return attempt < max(s.MaxAttempts, 1)
}

// Do calls fn until it succeeds, the attempts are used up or ctx is done.
// fn receives the 1-based attempt number. The last error is returned.
func (s Strategy) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !s.IsRetryable(attempt) {
			return err
		}

		timer := time.NewTimer(s.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (retry aborted after attempt %d: %v)", err, attempt, ctx.Err())
		case <-timer.C:
		}
	}
}

func (s Strategy) maxDelay() time.Duration {
	if s.MaxDelay <= 0 {
		return s.BaseDelay
	}
	return s.MaxDelay
}
