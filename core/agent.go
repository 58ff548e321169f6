package core

import "context"

// Agent is the uniform contract every task executor implements. Execute
// receives the stage's immutable ExecutionContext and the accumulated state,
// and returns the (possibly extended) state plus the stage result.
//
// Failures surface as ExecutionResult.Success == false; agents should not
// panic. Implementations must respect ctx cancellation on blocking work and
// must treat the received state as read-only, deriving new states via
// AgentState.Set.
type Agent interface {
	Name() string
	Execute(ctx context.Context, ec ExecutionContext, state AgentState) (AgentState, ExecutionResult)
}

// AgentInfo carries identifying details about an agent used in events and
// logs. Name is the external identifier; Type categorizes the implementation
// (e.g. "triage", "optimization").
type AgentInfo struct{ Name, Type string }
