package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	attempts := 0
	out := Run(context.Background(), 3, 10*time.Millisecond, func(ctx context.Context, attempt int) Outcome[string] {
		attempts++
		return Ok("done")
	})

	v, err := out.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRun_EventualSuccess(t *testing.T) {
	out := Run(context.Background(), 2, time.Millisecond, func(ctx context.Context, attempt int) Outcome[int] {
		if attempt < 2 {
			return Retryable[int](errors.New("temporary error"))
		}
		return Ok(attempt)
	})

	require.True(t, out.IsOk())
	assert.Equal(t, 2, out.Value)
}

func TestRun_AllAttemptsRetryable(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	out := Run(context.Background(), 2, time.Millisecond, func(ctx context.Context, attempt int) Outcome[int] {
		attempts++
		return Retryable[int](expectedErr)
	})

	assert.Equal(t, KindRetryable, out.Kind, "last outcome is returned unchanged")
	_, err := out.Unwrap()
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 2, attempts, "should attempt exactly maxAttempts times")
}

func TestRun_FatalStopsImmediately(t *testing.T) {
	attempts := 0
	out := Run(context.Background(), 5, time.Millisecond, func(ctx context.Context, attempt int) Outcome[int] {
		attempts++
		return Fatal[int](errors.New("broken"))
	})

	assert.Equal(t, KindFatal, out.Kind)
	assert.Equal(t, 1, attempts)
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	out := Run(ctx, 10, 10*time.Millisecond, func(ctx context.Context, attempt int) Outcome[int] {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return Retryable[int](errors.New("error"))
	})

	_, err := out.Unwrap()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindFatal, out.Kind)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRun_ExponentialBackoff(t *testing.T) {
	var delays []time.Duration
	lastTime := time.Now()

	out := Run(context.Background(), 4, 10*time.Millisecond, func(ctx context.Context, attempt int) Outcome[int] {
		if attempt > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempt < 4 {
			return Retryable[int](errors.New("error"))
		}
		return Ok(attempt)
	})

	require.True(t, out.IsOk())
	require.Len(t, delays, 3)
	assert.Greater(t, delays[1], delays[0], "second delay should be greater than first")
	assert.Greater(t, delays[2], delays[1], "third delay should be greater than second")
}

func TestRun_InvalidMaxAttempts(t *testing.T) {
	attempts := 0
	for _, n := range []int{0, -1} {
		out := Run(context.Background(), n, time.Millisecond, func(ctx context.Context, attempt int) Outcome[int] {
			attempts++
			return Ok(1)
		})
		_, err := out.Unwrap()
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	}
	assert.Equal(t, 0, attempts)
}

func TestDo_NonRetryableError(t *testing.T) {
	permanent := errors.New("constraint violation")
	attempts := 0
	err := Do(context.Background(), 3, time.Millisecond,
		func(err error) bool { return !errors.Is(err, permanent) },
		func(ctx context.Context) error {
			attempts++
			return permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestDo_RetriesTransient(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 2, time.Millisecond, nil, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("timeout")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestOutcome_UnwrapWithoutCause(t *testing.T) {
	_, err := Outcome[int]{Kind: KindFatal}.Unwrap()
	assert.ErrorIs(t, err, ErrNoCause)
	assert.Equal(t, "retryable", KindRetryable.String())
}
