package orchestrate

import (
	"context"
	"sync"

	"github.com/hupe1980/agentgate/core"
)

// ExecuteSequential runs the keyed agents in order, feeding each one the
// state produced by its predecessor. It stops at the first failure and
// returns the results gathered so far.
func (s *Supervisor) ExecuteSequential(ctx context.Context, ec core.ExecutionContext, state core.AgentState, keys ...string) (core.AgentState, []core.ExecutionResult) {
	results := make([]core.ExecutionResult, 0, len(keys))
	for _, key := range keys {
		var res core.ExecutionResult
		state, res = s.RouteToAgent(ctx, key, ec, state)
		results = append(results, res)
		if !res.Success {
			break
		}
	}
	return state, results
}

// ExecuteParallel fans the same state snapshot out to every keyed agent at
// once and merges the branch deltas back in the order the keys were given,
// so the outcome does not depend on goroutine scheduling.
func (s *Supervisor) ExecuteParallel(ctx context.Context, ec core.ExecutionContext, state core.AgentState, keys ...string) (core.AgentState, []core.ExecutionResult) {
	branches := make([]core.AgentState, len(keys))
	results := make([]core.ExecutionResult, len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			branches[i], results[i] = s.RouteToAgent(ctx, key, ec, state)
		}(i, key)
	}
	wg.Wait()

	return core.Merge(state, branches...), results
}

// ExecuteConditional runs the keyed agent only when cond holds for the
// current state. When skipped, the state passes through unchanged and the
// second return value is false.
func (s *Supervisor) ExecuteConditional(ctx context.Context, ec core.ExecutionContext, state core.AgentState, key string, cond func(core.AgentState) bool) (core.AgentState, core.ExecutionResult, bool) {
	if !cond(state) {
		return state, core.ExecutionResult{}, false
	}
	next, res := s.RouteToAgent(ctx, key, ec, state)
	return next, res, true
}

// ExecuteIterative re-runs the keyed agent until accept approves the outcome
// or maxIterations is reached, threading the produced state back in. The
// result of the final iteration is returned.
func (s *Supervisor) ExecuteIterative(ctx context.Context, ec core.ExecutionContext, state core.AgentState, key string, maxIterations int, accept func(core.AgentState, core.ExecutionResult) bool) (core.AgentState, core.ExecutionResult, int) {
	if maxIterations < 1 {
		maxIterations = 1
	}

	var res core.ExecutionResult
	iterations := 0
	for i := 0; i < maxIterations; i++ {
		iterations++
		state, res = s.RouteToAgent(ctx, key, ec, state)
		if !res.Success {
			break
		}
		if accept == nil || accept(state, res) {
			break
		}
		ec = ec.WithRetry()
	}
	return state, res, iterations
}
