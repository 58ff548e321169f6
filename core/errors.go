package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned by a circuit breaker that is refusing calls
// during its cool-down window. Callers should not retry through the breaker
// until it has had a chance to probe.
var ErrCircuitOpen = errors.New("Circuit breaker open")

// ErrPoolClosed is returned by resource pool acquisition after Close.
var ErrPoolClosed = errors.New("pool is closed")

// AgentNotFoundError reports a registry miss for an agent key. Fatal for the
// stage that requested it; never retried.
type AgentNotFoundError struct {
	Key string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent not found: %s", e.Key)
}

// CapacityExceededError reports that creating one more agent would exceed the
// configured concurrency limit. Surfaced to the caller immediately.
type CapacityExceededError struct {
	Limit int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("Maximum concurrent agents reached (limit %d)", e.Limit)
}

// ServiceTimeoutError reports that an operation exceeded its time bound.
// Label identifies the wrapped operation (usually the stage or agent key).
type ServiceTimeoutError struct {
	Label   string
	Timeout time.Duration
}

func (e *ServiceTimeoutError) Error() string {
	return fmt.Sprintf("service %s timed out after %s", e.Label, e.Timeout)
}

// ValidationComputationError wraps a failure inside a quality sub-scorer.
// The quality engine catches it internally and downgrades the validation to
// failed; it never propagates to callers.
type ValidationComputationError struct {
	Dimension string
	Err       error
}

func (e *ValidationComputationError) Error() string {
	return fmt.Sprintf("Validation error in %s: %v", e.Dimension, e.Err)
}

func (e *ValidationComputationError) Unwrap() error { return e.Err }
