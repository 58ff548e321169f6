package agent

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/quality"
)

// StageValidation is the state key the validation agent writes to.
const StageValidation = "validation"

// ValidationAgent runs the quality engine over the text outputs of the
// earlier stages and records the per-stage verdicts. It never rejects the
// run itself; the supervisor decides what to do with the verdicts.
type ValidationAgent struct {
	BaseAgent
	engine *quality.Engine
	strict bool
}

// ValidationOptions configures the validation worker.
type ValidationOptions struct {
	BaseOptions
	// Strict applies the engine's strict verdict to every stage.
	Strict bool
}

// NewValidationAgent creates the validation worker backed by engine.
func NewValidationAgent(engine *quality.Engine, optFns ...func(o *ValidationOptions)) *ValidationAgent {
	opts := ValidationOptions{}
	opts.Description = "Validates stage outputs against the quality gate"
	for _, fn := range optFns {
		fn(&opts)
	}
	base := NewBaseAgent("validation", func(o *BaseOptions) {
		*o = opts.BaseOptions
		if o.Description == "" {
			o.Description = "Validates stage outputs against the quality gate"
		}
	})
	return &ValidationAgent{BaseAgent: base, engine: engine, strict: opts.Strict}
}

// stageContent maps each validated stage to the state field holding its text
// and the content type it is scored as.
var stageContent = []struct {
	stage       string
	field       string
	contentType quality.ContentType
}{
	{StageDataAnalysis, "analysis", quality.ContentTypeDataAnalysis},
	{StageOptimization, "recommendation", quality.ContentTypeOptimization},
	{StageReporting, "report", quality.ContentTypeReport},
}

// Execute implements core.Agent.
func (a *ValidationAgent) Execute(ctx context.Context, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return state, core.FailedResult(a.Name(), err)
	}
	if a.engine == nil {
		return state, core.FailedResult(a.Name(), errors.New("no quality engine configured"))
	}

	items := make([]quality.BatchItem, 0, len(stageContent))
	stages := make([]string, 0, len(stageContent))
	for _, sc := range stageContent {
		out := state.GetMap(sc.stage)
		text, _ := out[sc.field].(string)
		if text == "" {
			continue
		}
		items = append(items, quality.BatchItem{Content: text, ContentType: sc.contentType})
		stages = append(stages, sc.stage)
	}

	results := a.engine.ValidateBatch(ctx, items, func(o *quality.ValidateOptions) {
		o.Strict = a.strict
	})

	verdicts := make(map[string]any, len(results))
	allPassed := true
	for i, res := range results {
		verdicts[stages[i]] = map[string]any{
			"passed":        res.Passed,
			"overall_score": res.Metrics.OverallScore,
			"quality_level": string(res.Metrics.QualityLevel),
		}
		if !res.Passed {
			allPassed = false
		}
		a.Logger().Debug("validated stage %s run=%s passed=%v score=%.3f",
			stages[i], ec.RunID, res.Passed, res.Metrics.OverallScore)
	}

	output := map[string]any{
		"verdicts":   verdicts,
		"all_passed": allPassed,
		"validated":  len(results),
	}

	next := state.Set(StageValidation, output)
	return next, core.CompletedResult(a.Name(), output, map[string]float64{
		"execution_time_ms": elapsedMillis(start),
	})
}
