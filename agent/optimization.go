package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentgate/core"
)

// StageOptimization is the state key the optimization agent writes to.
const StageOptimization = "optimization"

// OptimizationAgent produces an optimization recommendation from the triage
// summary and any prior analysis. Its output goes through the quality gate,
// so retries carry prompt adjustments via the execution context.
type OptimizationAgent struct {
	BaseAgent
}

// NewOptimizationAgent creates the optimization worker.
func NewOptimizationAgent(optFns ...func(o *BaseOptions)) *OptimizationAgent {
	base := NewBaseAgent("optimization", append([]func(o *BaseOptions){func(o *BaseOptions) {
		o.Description = "Produces quantified optimization recommendations"
	}}, optFns...)...)
	return &OptimizationAgent{BaseAgent: base}
}

// Execute implements core.Agent.
func (a *OptimizationAgent) Execute(ctx context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return state, core.FailedResult(a.Name(), err)
	}

	triage := state.GetMap(StageTriage)
	analysis := state.GetMap(StageDataAnalysis)
	request, _ := state.Get("request")
	requestText, _ := request.(string)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Request: %s\n", requestText)
	if summary, ok := triage["summary"].(string); ok && summary != "" {
		fmt.Fprintf(&sb, "Triage summary: %s\n", summary)
	}
	if text, ok := analysis["analysis"].(string); ok && text != "" {
		fmt.Fprintf(&sb, "Analysis: %s\n", text)
	}
	if guidance := retryGuidance(ec); guidance != "" {
		fmt.Fprintf(&sb, "Revise the previous answer: %s\n", guidance)
	}

	fallback := synthesizeRecommendation(analysis)
	recommendation := a.generate(ctx,
		"You produce optimization recommendations. Every recommendation must name the exact resource and quantify the expected effect.",
		strings.TrimSpace(sb.String()), fallback)

	output := map[string]any{
		"recommendation": recommendation,
		"attempt":        ec.RetryCount + 1,
	}

	next := state.Set(StageOptimization, output)
	return next, core.CompletedResult(a.Name(), output, map[string]float64{
		"execution_time_ms": elapsedMillis(start),
	})
}

// synthesizeRecommendation derives a quantified recommendation directly from
// the analysis output, used when no model is configured.
func synthesizeRecommendation(analysis map[string]any) string {
	count, _ := analysis["metric_count"].(int)
	text, _ := analysis["analysis"].(string)
	if text == "" {
		return "Reduce baseline resource allocation by 10% and re-measure before further tuning."
	}
	return fmt.Sprintf("Based on %d measured metrics: %s Reduce the dominant resource consumer by 15%% and re-measure.",
		count, text)
}
