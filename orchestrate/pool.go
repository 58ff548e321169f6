package orchestrate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/pool"
)

// AgentFactory builds a fresh agent instance for a routing key.
type AgentFactory func(key string) (core.Agent, error)

// AgentPool hands out pooled agent instances per user and routing key.
// Instances are reused across runs; creating beyond the per-key limit
// yields a CapacityExceededError instead of blocking the caller.
type AgentPool struct {
	mu             sync.Mutex
	factory        AgentFactory
	limit          int
	minSize        int
	acquireTimeout time.Duration
	pools          map[string]*pool.Pool[core.Agent]
	metrics        *MetricsRecorder
	logger         logging.Logger
	closed         bool
}

// AgentPoolOptions configures an AgentPool.
type AgentPoolOptions struct {
	// Limit caps concurrently held instances per user and routing key.
	Limit int
	// MinSize pre-warms each sub-pool so the first acquire pays no growth wait.
	MinSize int
	// AcquireTimeout bounds how long an acquire waits for a free instance
	// before growing the sub-pool.
	AcquireTimeout time.Duration
	Metrics        *MetricsRecorder
	Logger         logging.Logger
}

// NewAgentPool creates a pool backed by factory.
func NewAgentPool(factory AgentFactory, optFns ...func(o *AgentPoolOptions)) *AgentPool {
	opts := AgentPoolOptions{
		Limit:          4,
		MinSize:        1,
		AcquireTimeout: 10 * time.Millisecond,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Limit <= 0 {
		opts.Limit = 4
	}
	if opts.MinSize < 0 || opts.MinSize > opts.Limit {
		opts.MinSize = 1
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 10 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &AgentPool{
		factory:        factory,
		limit:          opts.Limit,
		minSize:        opts.MinSize,
		acquireTimeout: opts.AcquireTimeout,
		pools:          make(map[string]*pool.Pool[core.Agent]),
		metrics:        opts.Metrics,
		logger:         opts.Logger,
	}
}

// Acquire returns a pooled agent for the user and routing key plus a release
// function the caller must invoke when done. When every instance up to the
// limit is in use, a CapacityExceededError is returned instead of blocking.
func (p *AgentPool) Acquire(ctx context.Context, userID, key string) (core.Agent, func(), error) {
	sub, err := p.subPool(ctx, userID, key)
	if err != nil {
		return nil, nil, err
	}

	a, err := sub.TryAcquire(ctx)
	if err != nil {
		if errors.Is(err, pool.ErrExhausted) {
			return nil, nil, &core.CapacityExceededError{Limit: p.limit}
		}
		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() { sub.Release(a) })
	}
	return a, release, nil
}

func (p *AgentPool) subPool(_ context.Context, userID, key string) (*pool.Pool[core.Agent], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, core.ErrPoolClosed
	}

	id := userID + "|" + key
	if sub, ok := p.pools[id]; ok {
		return sub, nil
	}

	sub, err := pool.New(
		func(context.Context) (core.Agent, error) {
			a, err := p.factory(key)
			if err != nil {
				return nil, err
			}
			if p.metrics != nil {
				p.metrics.AgentCreated()
			}
			p.logger.Debug("created pooled agent user=%s key=%s", userID, key)
			return a, nil
		},
		func(core.Agent) error {
			if p.metrics != nil {
				p.metrics.AgentDestroyed()
			}
			return nil
		},
		func(o *pool.Options) {
			o.MinSize = p.minSize
			o.MaxSize = p.limit
			o.AcquireTimeout = p.acquireTimeout
			o.Logger = p.logger
		},
	)
	if err != nil {
		return nil, err
	}
	p.pools[id] = sub
	return sub, nil
}

// Close drains every sub-pool. Subsequent Acquire calls fail with
// ErrPoolClosed.
func (p *AgentPool) Close() error {
	p.mu.Lock()
	p.closed = true
	pools := make([]*pool.Pool[core.Agent], 0, len(p.pools))
	for _, sub := range p.pools {
		pools = append(pools, sub)
	}
	p.mu.Unlock()

	var firstErr error
	for _, sub := range pools {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
