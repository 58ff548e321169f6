package rework

import (
	"context"
	"math"
	"time"

	"github.com/hupe1980/agentgate/logging"
)

// Policy configures Retry.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the sleep before the first retry.
	Delay time.Duration
	// BackoffFactor multiplies the delay after each attempt. 1.0 keeps the
	// delay constant; 2.0 doubles it each time.
	BackoffFactor float64
	// Logger receives a warning per failed attempt. Nil disables logging.
	Logger logging.Logger
}

// ApplyDefaults fills unset fields with safe values.
func (p *Policy) ApplyDefaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Delay <= 0 {
		p.Delay = 100 * time.Millisecond
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = 1.0
	}
	if p.Logger == nil {
		p.Logger = logging.NoOpLogger{}
	}
}

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// Retry executes op until it succeeds or the policy's attempts are
// exhausted, sleeping Delay * BackoffFactor^(attempt-1) between attempts.
// The last error is returned after exhaustion. Sleeps respect ctx
// cancellation.
func Retry(ctx context.Context, p Policy, op Operation) error {
	p.ApplyDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		p.Logger.Warn("attempt %d/%d failed: %v", attempt, p.MaxAttempts, lastErr)

		if attempt == p.MaxAttempts {
			break
		}

		delay := backoffDelay(p.Delay, p.BackoffFactor, attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// backoffDelay computes the sleep before retry number attempt+1.
func backoffDelay(base time.Duration, factor float64, attempt int) time.Duration {
	if factor == 1.0 {
		return base
	}
	return time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
}
