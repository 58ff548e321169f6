package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgate/agent"
	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/quality"
	"github.com/hupe1980/agentgate/rework"
)

// scriptedAgent runs an arbitrary function, for exercising the supervisor
// without real workers.
type scriptedAgent struct {
	name string
	fn   func(ctx context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult)
}

func (a *scriptedAgent) Name() string { return a.name }

func (a *scriptedAgent) Execute(ctx context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	return a.fn(ctx, ec, state)
}

func sleepAgent(name string, d time.Duration) *scriptedAgent {
	return &scriptedAgent{name: name, fn: func(ctx context.Context, _ core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return state, core.FailedResult(name, ctx.Err())
		}
		next := state.Set(name, map[string]any{"done": true})
		return next, core.CompletedResult(name, map[string]any{"done": true}, nil)
	}}
}

func failingAgent(name string) *scriptedAgent {
	return &scriptedAgent{name: name, fn: func(_ context.Context, _ core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
		return state, core.FailedResult(name, errors.New("backend unavailable"))
	}}
}

func defaultRegistry() *agent.Registry {
	r := agent.NewRegistry()
	r.Register(agent.StageTriage, agent.NewTriageAgent())
	r.Register(agent.StageDataAnalysis, agent.NewDataAnalysisAgent())
	r.Register(agent.StageOptimization, agent.NewOptimizationAgent())
	r.Register(agent.StageReporting, agent.NewReportingAgent())
	return r
}

func fastOptions(o *SupervisorOptions) {
	o.StageTimeout = time.Second
	o.Retry = rework.Policy{MaxAttempts: 1, Delay: time.Millisecond, BackoffFactor: 2.0}
	o.BreakerThreshold = 5
	o.BreakerRecovery = 50 * time.Millisecond
}

func TestSupervisor_RunCompletesWithData(t *testing.T) {
	engine := quality.NewEngine()
	registry := defaultRegistry()
	registry.Register(agent.StageValidation, agent.NewValidationAgent(engine))
	metrics := NewMetricsRecorder()
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.Quality = engine
		o.Metrics = metrics
	})

	ec := core.NewExecutionContext("user-1", "thread-1")
	state, run := s.Run(context.Background(), ec,
		"Please analyze the GPU memory data and optimize usage",
		map[string]any{"gpu_memory_gb": 24, "batch_size": 32})

	assert.Equal(t, core.StatusCompleted, run.Status)
	assert.NotEmpty(t, run.Output)
	require.Contains(t, run.Stages, agent.StageDataAnalysis)
	for stage, res := range run.Stages {
		assert.True(t, res.Success, stage)
		assert.Equal(t, core.StatusCompleted, res.Status, stage)
	}

	validation := state.GetMap(agent.StageValidation)
	assert.Equal(t, true, validation["all_passed"])

	snap := metrics.Snapshot()
	assert.Equal(t, 5, snap.TotalExecutions)
	assert.InDelta(t, 100.0, snap.SuccessRate, 0.001)
	assert.GreaterOrEqual(t, snap.ConcurrentPeak, 1)
}

func TestSupervisor_RunWithoutDataSkipsAnalysis(t *testing.T) {
	engine := quality.NewEngine()
	registry := defaultRegistry()
	registry.Register(agent.StageValidation, agent.NewValidationAgent(engine))
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.Quality = engine
	})

	ec := core.NewExecutionContext("user-1", "thread-1")
	state, run := s.Run(context.Background(), ec, "Optimize the deployment cost", nil)

	assert.NotContains(t, run.Stages, agent.StageDataAnalysis)
	_, ok := state.Get(agent.StageDataAnalysis)
	assert.False(t, ok)

	// Without measured data the synthesized recommendation cannot clear the
	// gate, so the run keeps the best attempt and reports degradation.
	assert.Equal(t, core.StatusDegraded, run.Status)
	assert.Equal(t, core.StatusDegraded, run.Stages[agent.StageOptimization].Status)
	assert.NotEmpty(t, run.Output)
}

func TestSupervisor_QualityRegenerationImproves(t *testing.T) {
	engine := quality.NewEngine()
	registry := agent.NewRegistry()
	registry.Register(agent.StageOptimization, &scriptedAgent{name: "optimization", fn: func(_ context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
		text := "Consider improving the memory usage of the service."
		if ec.RetryCount > 0 {
			text = "Reduced GPU memory from 24GB to 16GB (33%) by lowering batch size from 32 to 16."
		}
		out := map[string]any{"recommendation": text, "attempt": ec.RetryCount + 1}
		return state.Set(agent.StageOptimization, out), core.CompletedResult("optimization", out, nil)
	}})
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.Quality = engine
		o.MaxRefineIterations = 2
	})

	ec := core.NewExecutionContext("user-1", "thread-1")
	state, res := s.RouteToAgent(context.Background(), agent.StageOptimization, ec, core.NewAgentState())

	assert.True(t, res.Success)
	assert.Equal(t, core.StatusCompleted, res.Status)
	out := state.GetMap(agent.StageOptimization)
	assert.Contains(t, out["recommendation"], "24GB to 16GB")
	assert.Equal(t, 2, out["attempt"])
}

func TestSupervisor_QualityExhaustionKeepsBestAttempt(t *testing.T) {
	engine := quality.NewEngine()
	registry := agent.NewRegistry()
	calls := 0
	registry.Register(agent.StageOptimization, &scriptedAgent{name: "optimization", fn: func(_ context.Context, _ core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
		calls++
		out := map[string]any{"recommendation": fmt.Sprintf("Improve the service, attempt number %d.", calls)}
		return state.Set(agent.StageOptimization, out), core.CompletedResult("optimization", out, nil)
	}})
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.Quality = engine
		o.MaxRefineIterations = 2
	})

	ec := core.NewExecutionContext("user-1", "thread-1")
	_, res := s.RouteToAgent(context.Background(), agent.StageOptimization, ec, core.NewAgentState())

	assert.True(t, res.Success)
	assert.Equal(t, core.StatusDegraded, res.Status)
	assert.Equal(t, 3, calls, "initial attempt plus two regenerations")
	assert.NotEmpty(t, res.Error)
}

func TestSupervisor_ParallelRunsConcurrently(t *testing.T) {
	registry := agent.NewRegistry()
	registry.Register("slow_a", sleepAgent("slow_a", 50*time.Millisecond))
	registry.Register("slow_b", sleepAgent("slow_b", 30*time.Millisecond))
	s := New(registry, fastOptions)

	ec := core.NewExecutionContext("user-1", "thread-1")
	start := time.Now()
	state, results := s.ExecuteParallel(context.Background(), ec, core.NewAgentState(), "slow_a", "slow_b")
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Less(t, elapsed, 90*time.Millisecond, "stages must overlap, not serialize")

	_, ok := state.Get("slow_a")
	assert.True(t, ok)
	_, ok = state.Get("slow_b")
	assert.True(t, ok)
}

func TestSupervisor_SequentialStopsOnFailure(t *testing.T) {
	registry := agent.NewRegistry()
	registry.Register("ok", sleepAgent("ok", time.Millisecond))
	registry.Register("broken", failingAgent("broken"))
	registry.Register("after", sleepAgent("after", time.Millisecond))
	s := New(registry, fastOptions)

	ec := core.NewExecutionContext("user-1", "thread-1")
	state, results := s.ExecuteSequential(context.Background(), ec, core.NewAgentState(), "ok", "broken", "after")

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	_, ok := state.Get("after")
	assert.False(t, ok)
}

func TestSupervisor_IterativeStopsWhenAccepted(t *testing.T) {
	registry := agent.NewRegistry()
	runs := 0
	registry.Register("refine", &scriptedAgent{name: "refine", fn: func(_ context.Context, _ core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
		runs++
		out := map[string]any{"round": runs}
		return state.Set("refine", out), core.CompletedResult("refine", out, nil)
	}})
	s := New(registry, fastOptions)

	ec := core.NewExecutionContext("user-1", "thread-1")
	_, res, iterations := s.ExecuteIterative(context.Background(), ec, core.NewAgentState(), "refine", 5, func(st core.AgentState, _ core.ExecutionResult) bool {
		out := st.GetMap("refine")
		round, _ := out["round"].(int)
		return round >= 2
	})

	assert.True(t, res.Success)
	assert.Equal(t, 2, iterations)
	assert.Equal(t, 2, runs)
}

func TestSupervisor_UnknownAgentFails(t *testing.T) {
	s := New(agent.NewRegistry(), fastOptions)
	ec := core.NewExecutionContext("user-1", "thread-1")

	_, res := s.RouteToAgent(context.Background(), "missing", ec, core.NewAgentState())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "agent not found")
}

func TestSupervisor_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	registry := agent.NewRegistry()
	registry.Register("flaky", failingAgent("flaky"))
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.BreakerThreshold = 2
		o.BreakerRecovery = time.Minute
	})

	ec := core.NewExecutionContext("user-1", "thread-1")
	state := core.NewAgentState()

	_, res := s.RouteToAgent(context.Background(), "flaky", ec, state)
	assert.Contains(t, res.Error, "backend unavailable")
	_, res = s.RouteToAgent(context.Background(), "flaky", ec, state)
	assert.Contains(t, res.Error, "backend unavailable")

	_, res = s.RouteToAgent(context.Background(), "flaky", ec, state)
	assert.Contains(t, res.Error, "Circuit breaker open")
}

func TestSupervisor_ConcurrencyCapFailsFast(t *testing.T) {
	registry := agent.NewRegistry()
	registry.Register("slow", sleepAgent("slow", 200*time.Millisecond))
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.MaxConcurrentAgents = 1
	})

	ec := core.NewExecutionContext("user-1", "thread-1")

	done := make(chan core.ExecutionResult, 1)
	go func() {
		_, res := s.RouteToAgent(context.Background(), "slow", ec, core.NewAgentState())
		done <- res
	}()
	time.Sleep(50 * time.Millisecond)

	// The single slot is held by the in-flight stage.
	_, res := s.RouteToAgent(context.Background(), "slow", ec, core.NewAgentState())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Maximum concurrent agents reached (limit 1)")

	select {
	case first := <-done:
		assert.True(t, first.Success)
	case <-time.After(time.Second):
		t.Fatal("in-flight stage did not finish")
	}

	// With the slot released, routing succeeds again.
	_, res = s.RouteToAgent(context.Background(), "slow", ec, core.NewAgentState())
	assert.True(t, res.Success)
}

func TestSupervisor_StageTimeout(t *testing.T) {
	registry := agent.NewRegistry()
	registry.Register("slow", sleepAgent("slow", 200*time.Millisecond))
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.StageTimeout = 30 * time.Millisecond
	})

	ec := core.NewExecutionContext("user-1", "thread-1")
	_, res := s.RouteToAgent(context.Background(), "slow", ec, core.NewAgentState())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timed out")
}

func TestSupervisor_PublishesStageEvents(t *testing.T) {
	sink := NewChannelSink(16)
	registry := agent.NewRegistry()
	registry.Register("ok", sleepAgent("ok", time.Millisecond))
	s := New(registry, fastOptions, func(o *SupervisorOptions) {
		o.Events = sink
	})

	ec := core.NewExecutionContext("user-1", "thread-1")
	s.RouteToAgent(context.Background(), "ok", ec, core.NewAgentState())

	var types []EventType
	for len(sink.Events()) > 0 {
		ev := <-sink.Events()
		types = append(types, ev.Type)
		assert.Equal(t, ec.RunID, ev.RunID)
		assert.Equal(t, "ok", ev.Stage)
	}
	assert.Equal(t, []EventType{EventStageStarted, EventStageCompleted}, types)
}
