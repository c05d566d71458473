// Package deadline bounds how long a caller waits on slow upstream work.
package deadline

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("operation timed out")

// TimeoutError carries the caller-facing message for an overrun.
type TimeoutError struct {
	Message string
	After   time.Duration
}

func (e *TimeoutError) Error() string { return e.Message }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Run waits at most d for op. On overrun it returns a *TimeoutError and
// abandons op: op keeps running with ctx and its result is discarded. A
// non-positive d waits indefinitely.
func Run[T any](ctx context.Context, d time.Duration, message string, op func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := op(ctx)
		done <- outcome{value: v, err: err}
	}()

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timeout:
		if message == "" {
			message = ErrTimeout.Error()
		}
		return zero, &TimeoutError{Message: message, After: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
