package rework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 3, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExponentialBackoffGaps(t *testing.T) {
	sentinel := errors.New("always failing")
	var stamps []time.Time

	err := Retry(context.Background(), Policy{MaxAttempts: 3, Delay: 10 * time.Millisecond, BackoffFactor: 2.0}, func(context.Context) error {
		stamps = append(stamps, time.Now())
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 10*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 20*time.Millisecond)
}

func TestRetry_RecoversMidway(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 5, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelStopsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, Policy{MaxAttempts: 10, Delay: time.Second}, func(context.Context) error {
		calls++
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
