package orchestrate

import (
	"context"

	"github.com/hupe1980/agentgate/agent"
	"github.com/hupe1980/agentgate/core"
)

// RunResult is the outcome of a full pipeline run.
type RunResult struct {
	Status core.Status                     `json:"status"`
	Output string                          `json:"output,omitempty"`
	Stages map[string]core.ExecutionResult `json:"stages"`
}

// Run drives a request through the full pipeline: triage, a conditional
// data analysis pass, optimization and reporting fanned out in parallel,
// and a final validation sweep. Input data, when present, is attached to
// the state for the analysis stage.
func (s *Supervisor) Run(ctx context.Context, ec core.ExecutionContext, request string, inputData map[string]any) (core.AgentState, RunResult) {
	state := core.NewAgentState().Set("request", request)
	if len(inputData) > 0 {
		state = state.Set("input_data", inputData)
	}
	stages := make(map[string]core.ExecutionResult)

	state, triageRes := s.RouteToAgent(ctx, agent.StageTriage, ec, state)
	stages[agent.StageTriage] = triageRes
	if !triageRes.Success {
		return state, RunResult{Status: core.StatusFailed, Stages: stages}
	}

	state, analysisRes, ran := s.ExecuteConditional(ctx, ec, state, agent.StageDataAnalysis, func(st core.AgentState) bool {
		triage := st.GetMap(agent.StageTriage)
		required, _ := triage["requires_data"].(bool)
		return required
	})
	if ran {
		stages[agent.StageDataAnalysis] = analysisRes
	}

	state, parallelResults := s.ExecuteParallel(ctx, ec, state, agent.StageOptimization, agent.StageReporting)
	stages[agent.StageOptimization] = parallelResults[0]
	stages[agent.StageReporting] = parallelResults[1]

	state, validationRes := s.RouteToAgent(ctx, agent.StageValidation, ec, state)
	stages[agent.StageValidation] = validationRes

	return state, RunResult{
		Status: runStatus(stages),
		Output: runOutput(state),
		Stages: stages,
	}
}

// runStatus folds the stage outcomes into a run status: failed when nothing
// succeeded, degraded when some stage failed or was degraded, completed
// otherwise.
func runStatus(stages map[string]core.ExecutionResult) core.Status {
	succeeded, degraded := 0, 0
	for _, res := range stages {
		if !res.Success {
			continue
		}
		succeeded++
		if res.Status == core.StatusDegraded {
			degraded++
		}
	}
	switch {
	case succeeded == 0:
		return core.StatusFailed
	case degraded > 0 || succeeded < len(stages):
		return core.StatusDegraded
	default:
		return core.StatusCompleted
	}
}

// runOutput picks the most useful user-facing text from the finished state.
func runOutput(state core.AgentState) string {
	if out := state.GetMap(agent.StageOptimization); out != nil {
		if text, ok := out["recommendation"].(string); ok && text != "" {
			return text
		}
	}
	if out := state.GetMap(agent.StageReporting); out != nil {
		if text, ok := out["report"].(string); ok && text != "" {
			return text
		}
	}
	if out := state.GetMap(agent.StageTriage); out != nil {
		if text, ok := out["summary"].(string); ok && text != "" {
			return text
		}
	}
	return ""
}
