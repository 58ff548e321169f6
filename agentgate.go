// Package agentgate provides a high-level façade over the supervisor,
// quality engine and worker agents enabling rapid construction of
// quality-gated agent pipelines. Most applications interact with this
// package by:
//  1. Creating an AgentGate via New() (optionally overriding the default
//     in-memory services)
//  2. Registering additional agents or replacing the default workers
//  3. Running requests through Run()
//
// The façade delegates orchestration to orchestrate.Supervisor while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a model
// backend, a durable store and a structured logger.
package agentgate

import (
	"context"
	"time"

	"github.com/hupe1980/agentgate/agent"
	"github.com/hupe1980/agentgate/config"
	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/model"
	"github.com/hupe1980/agentgate/orchestrate"
	"github.com/hupe1980/agentgate/quality"
	"github.com/hupe1980/agentgate/rework"
	"github.com/hupe1980/agentgate/store"
)

// Options configures the AgentGate instance.
type Options struct {
	// Config tunes the supervisor and quality engine. Defaults to
	// config.Default().
	Config config.Config

	// Model backs the default workers. Nil keeps their deterministic
	// synthesis paths.
	Model model.Model

	// Store receives validation metrics. Nil opens the backend named by
	// Config.Store, falling back to an in-memory store.
	Store store.Store

	// Events receives stage lifecycle events (defaults to a no-op sink).
	Events orchestrate.EventSink

	// Metrics records orchestration counters (defaults to a fresh recorder).
	Metrics *orchestrate.MetricsRecorder

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentGate is the high-level façade aggregating the supervisor, its
// registry and the quality engine.
type AgentGate struct {
	opts       Options
	registry   *agent.Registry
	engine     *quality.Engine
	supervisor *orchestrate.Supervisor
}

// New creates a new AgentGate instance with optional overrides. The default
// workers (triage, data analysis, optimization, reporting, validation) are
// pre-registered.
func New(optFns ...func(o *Options)) *AgentGate {
	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Store == nil {
		opts.Store = newConfiguredStore(opts.Config.Store, opts.Logger)
	}
	if opts.Metrics == nil {
		opts.Metrics = orchestrate.NewMetricsRecorder()
	}

	engine := quality.NewEngine(func(o *quality.EngineOptions) {
		o.Threshold = opts.Config.Quality.Threshold
		o.CacheSize = opts.Config.Quality.CacheSize
		o.HistoryLimit = opts.Config.Quality.HistoryLimit
		o.Store = opts.Store
		o.Logger = opts.Logger
	})

	workerOpts := func(o *agent.BaseOptions) {
		o.Model = opts.Model
		o.Logger = opts.Logger
	}
	registry := agent.NewRegistry()
	registry.Register(agent.StageTriage, agent.NewTriageAgent(workerOpts))
	registry.Register(agent.StageDataAnalysis, agent.NewDataAnalysisAgent(workerOpts))
	registry.Register(agent.StageOptimization, agent.NewOptimizationAgent(workerOpts))
	registry.Register(agent.StageReporting, agent.NewReportingAgent(workerOpts))
	registry.Register(agent.StageValidation, agent.NewValidationAgent(engine, func(o *agent.ValidationOptions) {
		o.Strict = opts.Config.Quality.StrictMode
		o.Logger = opts.Logger
	}))

	pool := orchestrate.NewAgentPool(func(key string) (core.Agent, error) {
		return registry.Resolve(key)
	}, func(o *orchestrate.AgentPoolOptions) {
		o.Limit = opts.Config.Pool.MaxSize
		o.MinSize = opts.Config.Pool.MinSize
		o.AcquireTimeout = opts.Config.Pool.AcquireTimeout.Std()
		o.Metrics = opts.Metrics
		o.Logger = opts.Logger
	})

	supervisor := orchestrate.New(registry, func(o *orchestrate.SupervisorOptions) {
		o.Quality = engine
		o.Strict = opts.Config.Quality.StrictMode
		o.MaxConcurrentAgents = opts.Config.Supervisor.MaxConcurrentAgents
		o.MaxRefineIterations = opts.Config.Supervisor.MaxRefineIterations
		o.StageTimeout = opts.Config.Supervisor.StageTimeout.Std()
		o.Retry = rework.Policy{
			MaxAttempts:   opts.Config.Supervisor.MaxRetries,
			Delay:         100 * time.Millisecond,
			BackoffFactor: 2.0,
		}
		o.BreakerThreshold = opts.Config.Supervisor.BreakerThreshold
		o.BreakerRecovery = opts.Config.Supervisor.BreakerRecovery.Std()
		o.Pool = pool
		o.Metrics = opts.Metrics
		o.Events = opts.Events
		o.Logger = opts.Logger
	})

	return &AgentGate{
		opts:       opts,
		registry:   registry,
		engine:     engine,
		supervisor: supervisor,
	}
}

// newConfiguredStore opens the store named by cfg, falling back to the
// in-memory store when the backend cannot be opened.
func newConfiguredStore(cfg config.StoreConfig, logger logging.Logger) store.Store {
	if cfg.Backend == "sqlite" && cfg.Path != "" {
		s, err := store.NewSQLiteStore(cfg.Path)
		if err == nil {
			return s
		}
		logger.Warn("sqlite store unavailable, using in-memory store: %v", err)
	}
	return store.NewMemoryStore()
}

// RegisterAgent binds an agent to a routing key, replacing any default
// worker registered under the same key.
func (g *AgentGate) RegisterAgent(key string, a core.Agent) { g.registry.Register(key, a) }

// Supervisor exposes the underlying supervisor for direct use of the
// composition patterns.
func (g *AgentGate) Supervisor() *orchestrate.Supervisor { return g.supervisor }

// Quality exposes the validation engine, for standalone content checks and
// statistics.
func (g *AgentGate) Quality() *quality.Engine { return g.engine }

// Metrics exposes the orchestration metrics recorder.
func (g *AgentGate) Metrics() *orchestrate.MetricsRecorder { return g.opts.Metrics }

// Run drives a request through the full pipeline for the given user and
// returns the finished state along with the run outcome.
func (g *AgentGate) Run(ctx context.Context, userID, request string, inputData map[string]any) (core.AgentState, orchestrate.RunResult) {
	ec := core.NewExecutionContext(userID, "")
	return g.supervisor.Run(ctx, ec, request, inputData)
}
