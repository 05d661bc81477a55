package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "snapmap-archiver/pkg/errors"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: time.Minute}
	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
	assert.Equal(t, time.Minute, backoff.NextDelay(1))
	assert.Equal(t, time.Minute, backoff.NextDelay(100))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	var retried []int

	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			retried = append(retried, attempt)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return errors.New("persistent error")
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.Contains(t, err.Error(), "persistent error")
	assert.Equal(t, 3, attempts)
}

func TestDoUnlimitedAttempts(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 25 {
			return errors.New("throttled")
		}
		return nil
	}, &Config{
		MaxAttempts: 0,
		Backoff:     &ConstantBackoff{Delay: 0},
	})

	require.NoError(t, err)
	assert.Equal(t, 25, attempts)
}

func TestDoNonRetryableError(t *testing.T) {
	attempts := 0
	notFound := &errs.Error{Type: errs.ErrorTypeNotFound, Message: "gone", Code: 404}

	err := Do(func() error {
		attempts++
		return notFound
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
	})

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, attempts)
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(func() error {
		attempts++
		cancel()
		return errors.New("throttled")
	}, &Config{
		Backoff: &ConstantBackoff{Delay: time.Hour},
		Context: ctx,
		RetryIf: func(error) bool { return true },
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", &errs.Error{Type: errs.ErrorTypeServerError, Code: 503}
		}
		return "ok", nil
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &errs.Error{Type: errs.ErrorTypeNetwork}, true},
		{"rate limit", &errs.Error{Type: errs.ErrorTypeRateLimit}, true},
		{"server", &errs.Error{Type: errs.ErrorTypeServerError}, true},
		{"not found", &errs.Error{Type: errs.ErrorTypeNotFound}, false},
		{"parsing", &errs.Error{Type: errs.ErrorTypeParsing}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("eof"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultRetryIf(tt.err))
		})
	}
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
