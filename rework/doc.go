// Package rework provides the failure-recovery primitives the supervisor
// composes around stage executions: retry with exponential backoff, timeout
// conversion into ServiceTimeoutError, and a circuit breaker that fails fast
// while a dependency is persistently broken.
//
// All wrappers take a no-argument operation closure plus a policy value, so
// they compose freely: a breaker can wrap a retried, timed-out operation or
// the other way around.
package rework
