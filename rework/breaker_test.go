package rework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	boom := errors.New("boom")
	calls := 0
	fail := func(context.Context) error { calls++; return boom }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(context.Background(), fail), boom)
	}
	assert.Equal(t, BreakerOpen, b.State())

	// Next call fails fast without invoking the wrapped operation.
	err := b.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, core.ErrCircuitOpen)
	assert.Equal(t, 3, calls)
}

func TestBreaker_ProbeAfterRecovery(t *testing.T) {
	b := NewBreaker(1, 20*time.Millisecond)
	boom := errors.New("boom")

	assert.ErrorIs(t, b.Execute(context.Background(), func(context.Context) error { return boom }), boom)
	assert.Equal(t, BreakerOpen, b.State())

	time.Sleep(25 * time.Millisecond)

	// Exactly one probe is allowed; success closes the breaker.
	calls := 0
	err := b.Execute(context.Background(), func(context.Context) error { calls++; return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, 15*time.Millisecond)
	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }

	assert.ErrorIs(t, b.Execute(context.Background(), fail), boom)
	time.Sleep(20 * time.Millisecond)

	// Probe fails: breaker re-opens and restarts the window.
	assert.ErrorIs(t, b.Execute(context.Background(), fail), boom)
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Execute(context.Background(), fail), core.ErrCircuitOpen)
}

func TestBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	b := NewBreaker(1, 5*time.Millisecond)
	assert.Error(t, b.Execute(context.Background(), func(context.Context) error { return errors.New("boom") }))
	time.Sleep(10 * time.Millisecond)

	release := make(chan struct{})
	probeStarted := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func(context.Context) error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted
	// While the probe is in flight, other calls fail fast.
	err := b.Execute(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, core.ErrCircuitOpen)
	close(release)
}

func TestTimeout_ConvertsOverrun(t *testing.T) {
	err := Timeout(context.Background(), 10*time.Millisecond, "slow-agent", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	var te *core.ServiceTimeoutError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, "slow-agent", te.Label)
}

func TestTimeout_PassesThroughSuccess(t *testing.T) {
	err := Timeout(context.Background(), time.Second, "fast-agent", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestTimeout_PassesThroughFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Timeout(context.Background(), time.Second, "failing-agent", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
