// Package orchestrate contains the supervisor that drives worker agents
// through the pipeline: routed execution behind per-agent circuit breakers,
// timeouts and retries, quality-gated regeneration, the four composition
// patterns and run-level bookkeeping (metrics, events, pooling).
package orchestrate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hupe1980/agentgate/agent"
	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/quality"
	"github.com/hupe1980/agentgate/rework"
)

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	// Quality gates stage outputs; nil disables gating.
	Quality *quality.Engine
	// Strict applies the engine's strict verdict at the gate.
	Strict bool
	// MaxRefineIterations caps quality-driven regeneration attempts after
	// the first execution.
	MaxRefineIterations int
	// StageTimeout bounds a single agent execution.
	StageTimeout time.Duration
	// Retry governs transport-level retries inside a stage.
	Retry rework.Policy
	// BreakerThreshold consecutive failures open an agent's breaker.
	BreakerThreshold int
	// BreakerRecovery is the cool-down before a breaker probes again.
	BreakerRecovery time.Duration
	// MaxConcurrentAgents caps stage executions in flight across the
	// supervisor. Routing beyond the cap fails immediately with a
	// CapacityExceededError. Zero or negative disables the cap.
	MaxConcurrentAgents int

	// Pool, when set, supplies per-user pooled agent instances instead of
	// the registry's shared ones.
	Pool *AgentPool

	Metrics *MetricsRecorder
	Events  EventSink
	Logger  logging.Logger
}

// Supervisor routes work to registered agents and enforces the resilience
// and quality policies around every execution. Safe for concurrent use.
type Supervisor struct {
	registry *agent.Registry
	opts     SupervisorOptions

	breakers *breakerSet
	slots    chan struct{}
}

// New creates a Supervisor over the given registry.
func New(registry *agent.Registry, optFns ...func(o *SupervisorOptions)) *Supervisor {
	opts := SupervisorOptions{
		MaxConcurrentAgents: 4,
		MaxRefineIterations: 2,
		StageTimeout:        30 * time.Second,
		Retry:               rework.Policy{MaxAttempts: 3, Delay: 100 * time.Millisecond, BackoffFactor: 2.0},
		BreakerThreshold:    5,
		BreakerRecovery:     30 * time.Second,
		Events:              NoOpSink{},
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Events == nil {
		opts.Events = NoOpSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxRefineIterations < 0 {
		opts.MaxRefineIterations = 0
	}
	opts.Retry.Logger = opts.Logger

	s := &Supervisor{
		registry: registry,
		opts:     opts,
		breakers: newBreakerSet(opts.BreakerThreshold, opts.BreakerRecovery, opts.Logger),
	}
	if opts.MaxConcurrentAgents > 0 {
		s.slots = make(chan struct{}, opts.MaxConcurrentAgents)
	}
	return s
}

// gatedContent maps routing keys to the content type their output is scored
// as. Keys absent from the map bypass the quality gate.
var gatedContent = map[string]quality.ContentType{
	agent.StageDataAnalysis: quality.ContentTypeDataAnalysis,
	agent.StageOptimization: quality.ContentTypeOptimization,
	agent.StageReporting:    quality.ContentTypeReport,
}

// RouteToAgent executes the agent registered under key against the given
// state. The execution runs behind the agent's circuit breaker with a
// timeout and transport retries; gated outputs that miss the quality bar
// are regenerated with adjusted prompting, and the best attempt is kept.
func (s *Supervisor) RouteToAgent(ctx context.Context, key string, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		default:
			return state, core.FailedResult(key, &core.CapacityExceededError{Limit: cap(s.slots)})
		}
	}

	ag, err := s.registry.Resolve(key)
	if err != nil {
		return state, core.FailedResult(key, err)
	}
	if s.opts.Pool != nil {
		pooled, release, err := s.opts.Pool.Acquire(ctx, ec.UserID, key)
		if err != nil {
			return state, core.FailedResult(key, err)
		}
		defer release()
		ag = pooled
	}

	start := time.Now()
	if s.opts.Metrics != nil {
		s.opts.Metrics.ExecutionStarted()
	}
	s.opts.Events.Publish(StageEvent{
		Type: EventStageStarted, RunID: ec.RunID, Stage: key, Agent: ag.Name(), Timestamp: time.Now(),
	})

	newState, res := s.executeGated(ctx, key, ag, ec, state)

	dur := time.Since(start)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ExecutionFinished(dur, res.Success)
	}
	eventType := EventStageCompleted
	if !res.Success {
		eventType = EventStageFailed
	}
	s.opts.Events.Publish(StageEvent{
		Type: eventType, RunID: ec.RunID, Stage: key, Agent: ag.Name(),
		Error: res.Error, Duration: dur, Timestamp: time.Now(),
	})

	return newState, res
}

// executeGated runs the quality regeneration loop around executeResilient.
func (s *Supervisor) executeGated(ctx context.Context, key string, ag core.Agent, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	contentType, gated := gatedContent[key]
	if s.opts.Quality == nil {
		gated = false
	}

	var bestState core.AgentState
	var bestRes core.ExecutionResult
	bestScore := -1.0

	attemptEC := ec
	for attempt := 0; ; attempt++ {
		newState, res := s.executeResilient(ctx, key, ag, attemptEC, state)
		if !res.Success || !gated {
			return newState, res
		}

		verdict := s.opts.Quality.ValidateContent(ctx, res.OutputText(), contentType, func(o *quality.ValidateOptions) {
			o.Strict = s.opts.Strict
		})
		if verdict.Passed {
			return newState, res
		}

		if verdict.Metrics.OverallScore > bestScore {
			bestScore = verdict.Metrics.OverallScore
			bestState, bestRes = newState, res
		}

		if attempt >= s.opts.MaxRefineIterations || !verdict.RetrySuggested {
			s.opts.Logger.Warn("quality gate exhausted for %s run=%s score=%.3f", key, ec.RunID, bestScore)
			degraded := core.DegradedResult(bestRes.AgentName, bestRes.Output,
				"quality gate not met after regeneration", bestRes.Metrics)
			return bestState, degraded
		}

		s.opts.Logger.Info("regenerating %s run=%s attempt=%d score=%.3f", key, ec.RunID, attempt+1, verdict.Metrics.OverallScore)
		attemptEC = attemptEC.WithRetry().
			WithMetadata("retry_adjustments", strings.Join(verdict.RetryAdjustments, "; "))
	}
}

// executeResilient wraps one agent execution in breaker, retry and timeout.
func (s *Supervisor) executeResilient(ctx context.Context, key string, ag core.Agent, ec core.ExecutionContext, state core.AgentState) (core.AgentState, core.ExecutionResult) {
	var newState core.AgentState
	var res core.ExecutionResult

	err := s.breakers.forKey(key).Execute(ctx, func(ctx context.Context) error {
		return rework.Retry(ctx, s.opts.Retry, func(ctx context.Context) error {
			return rework.Timeout(ctx, s.opts.StageTimeout, key, func(ctx context.Context) error {
				ns, r := ag.Execute(ctx, ec, state)
				if !r.Success {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					return errors.New(r.Error)
				}
				newState, res = ns, r
				return nil
			})
		})
	})
	if err != nil {
		return state, core.FailedResult(ag.Name(), err)
	}
	return newState, res
}
