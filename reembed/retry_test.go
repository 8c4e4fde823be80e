package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) Backoff {
	return Backoff{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetry_Success(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastBackoff(3), nil, func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_EventualSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastBackoff(5), nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expected := errors.New("persistent error")
	err := Retry(context.Background(), fastBackoff(3), nil, func(context.Context) error {
		attempts++
		return expected
	})
	assert.Equal(t, expected, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_Permanent(t *testing.T) {
	attempts := 0
	expected := errors.New("bad request")
	err := Retry(context.Background(), fastBackoff(5), nil, func(context.Context) error {
		attempts++
		return Permanent(expected)
	})
	assert.Equal(t, expected, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, Backoff{Attempts: 5, BaseDelay: time.Hour}, nil, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("temporary error")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetry_InvalidAttempts(t *testing.T) {
	err := Retry(context.Background(), Backoff{}, nil, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.delay(1))
	assert.Equal(t, 200*time.Millisecond, b.delay(2))
	assert.Equal(t, 400*time.Millisecond, b.delay(3))
	assert.Equal(t, time.Second, b.delay(10))

	uncapped := Backoff{BaseDelay: time.Second}
	assert.Equal(t, 8*time.Second, uncapped.delay(4))
}
