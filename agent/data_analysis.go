package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/agentgate/core"
)

// StageDataAnalysis is the state key the analysis agent writes to.
const StageDataAnalysis = "data_analysis"

// DataAnalysisAgent inspects the metrics attached to a run and produces a
// quantified analysis for the downstream workers. With a model configured
// the analysis is generated; otherwise it is synthesized from the raw data.
type DataAnalysisAgent struct {
	BaseAgent
}

// NewDataAnalysisAgent creates the data analysis worker.
func NewDataAnalysisAgent(optFns ...func(o *BaseOptions)) *DataAnalysisAgent {
	base := NewBaseAgent("data_analysis", append([]func(o *BaseOptions){func(o *BaseOptions) {
		o.Description = "Analyzes attached metrics and quantifies trends"
	}}, optFns...)...)
	return &DataAnalysisAgent{BaseAgent: base}
}

// Execute implements core.Agent.
func (a *DataAnalysisAgent) Execute(ctx context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return state, core.FailedResult(a.Name(), err)
	}

	data := state.GetMap("input_data")
	request, _ := state.Get("request")
	requestText, _ := request.(string)

	fallback := synthesizeAnalysis(data)
	prompt := fmt.Sprintf("Request: %s\nData: %s\n%s", requestText, formatData(data), retryGuidance(ec))
	analysis := a.generate(ctx,
		"You analyze operational metrics. Quantify every observation with the measured values.",
		strings.TrimSpace(prompt), fallback)

	output := map[string]any{
		"analysis":     analysis,
		"metric_count": len(data),
	}

	next := state.Set(StageDataAnalysis, output)
	return next, core.CompletedResult(a.Name(), output, map[string]float64{
		"execution_time_ms": elapsedMillis(start),
	})
}

// synthesizeAnalysis builds a deterministic quantified summary of the raw
// metrics, used when no model is configured.
func synthesizeAnalysis(data map[string]any) string {
	if len(data) == 0 {
		return "No metrics were attached to this request, so 0 data points were analyzed."
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyzed %d metrics. ", len(data))
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s measured at %v. ", k, data[k])
	}
	return strings.TrimSpace(sb.String())
}

func formatData(data map[string]any) string {
	if len(data) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, ", ")
}
