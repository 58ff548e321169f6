package rework

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/logging"
)

// BreakerState enumerates the circuit breaker states.
type BreakerState int

const (
	// BreakerClosed lets calls through and counts failures.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails fast without invoking the wrapped operation.
	BreakerOpen
	// BreakerHalfOpen allows exactly one probe call through.
	BreakerHalfOpen
)

// String returns a human-readable state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a circuit breaker guarding a persistently failing operation.
// After failureThreshold consecutive failures it opens and fails fast with
// core.ErrCircuitOpen. Once the recovery timeout elapses, exactly one probe
// call is allowed through: success closes the breaker and resets the failure
// count, failure re-opens it and restarts the recovery window.
type Breaker struct {
	mu        sync.Mutex
	state     BreakerState
	failures  int
	threshold int
	recovery  time.Duration
	openedAt  time.Time
	logger    logging.Logger
}

// BreakerOption customizes a Breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger attaches a logger for state transitions.
func WithBreakerLogger(l logging.Logger) BreakerOption {
	return func(b *Breaker) { b.logger = l }
}

// NewBreaker creates a closed breaker with the given failure threshold and
// recovery timeout.
func NewBreaker(failureThreshold int, recovery time.Duration, opts ...BreakerOption) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	b := &Breaker{
		threshold: failureThreshold,
		recovery:  recovery,
		logger:    logging.NoOpLogger{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Execute runs op through the breaker. While open it returns
// core.ErrCircuitOpen immediately without invoking op.
func (b *Breaker) Execute(ctx context.Context, op Operation) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := op(ctx)
	b.record(err)
	return err
}

// allow decides whether a call may proceed, transitioning open → half-open
// when the recovery window has elapsed. Only one caller wins the probe slot.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) >= b.recovery {
			b.state = BreakerHalfOpen
			b.logger.Debug("circuit breaker half-open, allowing probe")
			return nil
		}
		return core.ErrCircuitOpen
	case BreakerHalfOpen:
		// Probe already in flight.
		return core.ErrCircuitOpen
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != BreakerClosed {
			b.logger.Info("circuit breaker closed after successful probe")
		}
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		b.logger.Warn("circuit breaker open after %d failures", b.failures)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
