package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentgate/core"
)

// StageTriage is the state key the triage agent writes its classification to.
const StageTriage = "triage"

// TriageAgent classifies an incoming request into a category and priority
// and decides whether the pipeline needs a data analysis pass. The decision
// is keyword driven so routing stays deterministic and cheap.
type TriageAgent struct {
	BaseAgent
}

// NewTriageAgent creates the triage worker.
func NewTriageAgent(optFns ...func(o *BaseOptions)) *TriageAgent {
	base := NewBaseAgent("triage", append([]func(o *BaseOptions){func(o *BaseOptions) {
		o.Description = "Classifies requests and routes them through the pipeline"
	}}, optFns...)...)
	return &TriageAgent{BaseAgent: base}
}

// Execute implements core.Agent.
func (a *TriageAgent) Execute(ctx context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return state, core.FailedResult(a.Name(), err)
	}

	request, _ := state.Get("request")
	text, _ := request.(string)
	lower := strings.ToLower(text)

	category := "general"
	switch {
	case containsAny(lower, "optimize", "optimization", "performance", "memory", "latency", "cost"):
		category = "optimization"
	case containsAny(lower, "error", "failure", "failed", "crash", "outage"):
		category = "incident"
	case containsAny(lower, "report", "summary", "overview"):
		category = "reporting"
	}

	priority := "normal"
	if containsAny(lower, "urgent", "critical", "immediately", "asap") {
		priority = "high"
	}

	requiresData := containsAny(lower, "analyze", "analysis", "data", "metrics", "measure", "report")

	output := map[string]any{
		"category":      category,
		"priority":      priority,
		"requires_data": requiresData,
		"summary":       a.summarize(ctx, text, category),
	}

	a.Logger().Debug("triaged request run=%s category=%s priority=%s requires_data=%v",
		ec.RunID, category, priority, requiresData)

	next := state.Set(StageTriage, output)
	return next, core.CompletedResult(a.Name(), output, map[string]float64{
		"execution_time_ms": elapsedMillis(start),
	})
}

func (a *TriageAgent) summarize(ctx context.Context, text, category string) string {
	fallback := fmt.Sprintf("Request classified as %s: %s", category, truncate(text, 120))
	return a.generate(ctx,
		"You classify incoming requests. Reply with a one-sentence summary of the request.",
		text, fallback)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
