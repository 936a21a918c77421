package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		return errors.New("still failing")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnFatalError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func() error {
		calls++
		return NewFatalError(errors.New("bad input"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryCallbackReportsDelay(t *testing.T) {
	var delays []time.Duration
	_ = RetryWithCallback(context.Background(), fastPolicy(3), func() error {
		return errors.New("transient")
	}, func(attempt int, err error, nextDelay time.Duration) {
		delays = append(delays, nextDelay)
	})

	require.Len(t, delays, 2)
	assert.Greater(t, delays[1], delays[0])
}

func TestDelayForAttemptCapped(t *testing.T) {
	policy := fastPolicy(3)

	assert.Equal(t, 2*time.Millisecond,
		DelayForAttempt(1, policy.InitialInterval, policy.Multiplier, policy.MaxInterval))
	assert.Equal(t, policy.MaxInterval,
		DelayForAttempt(10, policy.InitialInterval, policy.Multiplier, policy.MaxInterval))
}
