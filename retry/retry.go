package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// Run calls fn until it returns Ok or Fatal, or until maxAttempts Retryable
// outcomes have been seen. The final outcome is returned unchanged, so a caller
// can inspect whether the last failure was retryable.
//
// baseDelay doubles after each retry. Cancellation of ctx ends the loop with a
// Fatal outcome carrying ctx.Err().
func Run[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) Outcome[T]) Outcome[T] {
	if maxAttempts <= 0 {
		return Fatal[T](ErrInvalidMaxAttempts)
	}

	var last Outcome[T]
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Fatal[T](err)
		}

		last = fn(ctx, attempt)
		switch last.Kind {
		case KindOk:
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return last
		case KindFatal:
			return last
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", last.Err)

		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << (attempt - 1)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Fatal[T](ctx.Err())
		case <-timer.C:
		}
	}

	return last
}

// Do is Run for operations that only report an error. Errors for which
// retryable returns false end the loop immediately.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, retryable func(error) bool, op func(ctx context.Context) error) error {
	out := Run(ctx, maxAttempts, baseDelay, func(ctx context.Context, _ int) Outcome[struct{}] {
		err := op(ctx)
		switch {
		case err == nil:
			return Ok(struct{}{})
		case retryable != nil && !retryable(err):
			return Fatal[struct{}](err)
		default:
			return Retryable[struct{}](err)
		}
	})
	_, err := out.Unwrap()
	return err
}
