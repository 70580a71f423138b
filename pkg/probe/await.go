package probe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCancelled reports that the operator interrupted the wait. Distinct
// from a timeout: the dependency may well have come up later. No cleanup
// is performed on cancellation; the caller inspects and decides.
var ErrCancelled = errors.New("wait cancelled")

// TimeoutError reports that a dependency never became ready within the
// allowed attempts.
type TimeoutError struct {
	// Attempts is the number of checks actually made
	Attempts int

	// Last is the result of the final failed check
	Last Result
}

func (e *TimeoutError) Error() string {
	if e.Last.Message != "" {
		return fmt.Sprintf("not ready after %d attempts (last: %s)", e.Attempts, e.Last.Message)
	}
	return fmt.Sprintf("not ready after %d attempts", e.Attempts)
}

// AwaitReady polls the checker until it reports ready, up to maxAttempts
// checks with a fixed interval between failed attempts. No backoff: the
// dependencies being waited on (postgres accepting connections, the
// application's healthz) come up once and stay up, so a fixed cadence is
// both predictable and sufficient.
//
// Returns nil on the first ready result, *TimeoutError after exhausting
// attempts, and an error wrapping ErrCancelled if ctx is done first.
func AwaitReady(ctx context.Context, c Checker, maxAttempts int, interval time.Duration) error {
	if maxAttempts <= 0 {
		return fmt.Errorf("maxAttempts must be positive, got %d", maxAttempts)
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}

	var last Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("after %d attempts: %w", attempt-1, ErrCancelled)
		}

		last = c.Check(ctx)
		if last.Ready {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("after %d attempts: %w", attempt, ErrCancelled)
		case <-time.After(interval):
		}
	}

	return &TimeoutError{Attempts: maxAttempts, Last: last}
}
