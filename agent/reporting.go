package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentgate/core"
)

// StageReporting is the state key the reporting agent writes to.
const StageReporting = "reporting"

// ReportingAgent renders a human-readable report from whatever the earlier
// stages produced. It tolerates missing stages so it can run in parallel
// with the optimization worker on the same snapshot.
type ReportingAgent struct {
	BaseAgent
}

// NewReportingAgent creates the reporting worker.
func NewReportingAgent(optFns ...func(o *BaseOptions)) *ReportingAgent {
	base := NewBaseAgent("reporting", append([]func(o *BaseOptions){func(o *BaseOptions) {
		o.Description = "Renders run reports from prior stage outputs"
	}}, optFns...)...)
	return &ReportingAgent{BaseAgent: base}
}

// Execute implements core.Agent.
func (a *ReportingAgent) Execute(ctx context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return state, core.FailedResult(a.Name(), err)
	}

	triage := state.GetMap(StageTriage)
	analysis := state.GetMap(StageDataAnalysis)
	request, _ := state.Get("request")
	requestText, _ := request.(string)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run report for request: %s. ", truncate(requestText, 120))
	if category, ok := triage["category"].(string); ok {
		fmt.Fprintf(&sb, "Classified as %s with %v priority. ", category, triage["priority"])
	}
	if text, ok := analysis["analysis"].(string); ok && text != "" {
		fmt.Fprintf(&sb, "Findings: %s ", text)
	} else {
		sb.WriteString("No data analysis was required for this run. ")
	}
	fallback := strings.TrimSpace(sb.String())

	report := a.generate(ctx,
		"You write concise run reports. Include the request classification and every quantified finding.",
		fallback, fallback)

	output := map[string]any{
		"report":    report,
		"stages_in": len(state.Stages()),
	}

	a.Logger().Debug("report rendered run=%s bytes=%d", ec.RunID, len(report))

	next := state.Set(StageReporting, output)
	return next, core.CompletedResult(a.Name(), output, map[string]float64{
		"execution_time_ms": elapsedMillis(start),
	})
}
