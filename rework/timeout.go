package rework

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/agentgate/core"
)

// Timeout runs op with a deadline, converting an overrun into a
// ServiceTimeoutError carrying the label. The operation receives a derived
// context and is expected to honor its cancellation; if it does not, it is
// abandoned once the deadline passes.
func Timeout(ctx context.Context, d time.Duration, label string, op Operation) error {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(tctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return &core.ServiceTimeoutError{Label: label, Timeout: d}
		}
		return err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return &core.ServiceTimeoutError{Label: label, Timeout: d}
		}
		return tctx.Err()
	}
}
