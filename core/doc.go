// Package core defines the shared data model of the orchestration engine:
// the Agent execution contract, the per-stage ExecutionContext, the
// copy-on-write AgentState accumulator, per-stage ExecutionResult values and
// the error taxonomy surfaced by the supervisor and its collaborators.
//
// Everything in this package is transport-agnostic: serializing the types to
// JSON is supported (field names are stable) but no wire format is mandated.
package core
