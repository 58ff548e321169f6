// Package pool provides a generic reusable-handle pool for expensive
// external resources (clients, connections, sessions). Handles are produced
// by a constructor, recycled through a bounded free queue and destroyed by a
// destructor on overflow or drain.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/logging"
)

// ErrExhausted is returned by TryAcquire when every handle is checked out
// and the pool is at capacity.
var ErrExhausted = errors.New("pool exhausted")

// Constructor creates a new handle.
type Constructor[T any] func(ctx context.Context) (T, error)

// Destructor releases a handle's underlying resource.
type Destructor[T any] func(handle T) error

// Options configures a Pool.
type Options struct {
	// MinSize handles are pre-warmed at construction.
	MinSize int
	// MaxSize caps the total number of live handles.
	MaxSize int
	// AcquireTimeout bounds the initial wait for a free handle before the
	// pool considers creating a new one. Default 5s.
	AcquireTimeout time.Duration
	// DrainTimeout bounds the destruction of each handle during Close.
	DrainTimeout time.Duration
	// Logger receives pool lifecycle messages.
	Logger logging.Logger
}

// Pool is a bounded pool of reusable handles. The mutex guards the created
// counter, the closed flag and the active set; the free queue is a buffered
// channel sized to MaxSize.
type Pool[T comparable] struct {
	newFn   Constructor[T]
	closeFn Destructor[T]
	free    chan T

	mu      sync.Mutex
	created int
	active  map[T]struct{}
	closed  bool

	opts Options
}

// New constructs a pool and pre-warms MinSize handles.
func New[T comparable](newFn Constructor[T], closeFn Destructor[T], optFns ...func(o *Options)) (*Pool[T], error) {
	opts := Options{
		MinSize:        0,
		MaxSize:        10,
		AcquireTimeout: 5 * time.Second,
		DrainTimeout:   2 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxSize < 1 {
		return nil, fmt.Errorf("pool max size must be at least 1, got %d", opts.MaxSize)
	}
	if opts.MinSize > opts.MaxSize {
		return nil, fmt.Errorf("pool min size %d exceeds max size %d", opts.MinSize, opts.MaxSize)
	}

	p := &Pool[T]{
		newFn:   newFn,
		closeFn: closeFn,
		free:    make(chan T, opts.MaxSize),
		active:  make(map[T]struct{}),
		opts:    opts,
	}

	for i := 0; i < opts.MinSize; i++ {
		h, err := newFn(context.Background())
		if err != nil {
			return nil, fmt.Errorf("pre-warm handle %d: %w", i, err)
		}
		p.created++
		p.free <- h
	}

	return p, nil
}

// Acquire returns a handle, blocking up to the configured wait for a free
// one. On timeout it creates a new handle when under MaxSize; at capacity it
// keeps blocking on the free queue until a handle is released or ctx ends.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	if p.isClosed() {
		return zero, core.ErrPoolClosed
	}

	// Fast path: a free handle is already available.
	select {
	case h := <-p.free:
		p.markActive(h)
		return h, nil
	default:
	}

	wait := time.NewTimer(p.opts.AcquireTimeout)
	defer wait.Stop()

	select {
	case h := <-p.free:
		p.markActive(h)
		return h, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-wait.C:
	}

	if h, ok, err := p.tryCreate(ctx); err != nil {
		return zero, err
	} else if ok {
		p.markActive(h)
		return h, nil
	}

	p.opts.Logger.Debug("pool at capacity, blocking on free queue")
	select {
	case h := <-p.free:
		p.markActive(h)
		return h, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryAcquire behaves like Acquire up to the creation step, but fails with
// ErrExhausted instead of blocking once the pool is at capacity. The final
// free-queue check, the capacity check and the creation slot are claimed
// under one lock, so two callers racing for the last slot cannot both win.
func (p *Pool[T]) TryAcquire(ctx context.Context) (T, error) {
	var zero T

	if p.isClosed() {
		return zero, core.ErrPoolClosed
	}

	// Reuse first: wait briefly for a handle to come back.
	select {
	case h := <-p.free:
		p.markActive(h)
		return h, nil
	default:
	}

	wait := time.NewTimer(p.opts.AcquireTimeout)
	defer wait.Stop()

	select {
	case h := <-p.free:
		p.markActive(h)
		return h, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-wait.C:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, core.ErrPoolClosed
	}
	select {
	case h := <-p.free:
		p.active[h] = struct{}{}
		p.mu.Unlock()
		return h, nil
	default:
	}
	if p.created >= p.opts.MaxSize {
		p.mu.Unlock()
		return zero, ErrExhausted
	}
	p.created++
	p.mu.Unlock()

	h, err := p.newFn(ctx)
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return zero, err
	}
	p.markActive(h)
	return h, nil
}

// tryCreate builds a new handle if the cap allows it.
func (p *Pool[T]) tryCreate(ctx context.Context) (T, bool, error) {
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, false, core.ErrPoolClosed
	}
	if p.created >= p.opts.MaxSize {
		p.mu.Unlock()
		return zero, false, nil
	}
	p.created++
	p.mu.Unlock()

	h, err := p.newFn(ctx)
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return zero, false, err
	}
	return h, true, nil
}

func (p *Pool[T]) markActive(h T) {
	p.mu.Lock()
	p.active[h] = struct{}{}
	p.mu.Unlock()
}

// Release returns a handle to the free queue, or destroys it if the queue is
// full or the pool has been closed. Releasing a handle that Close already
// destroyed is a no-op.
func (p *Pool[T]) Release(h T) {
	p.mu.Lock()
	if _, ok := p.active[h]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.active, h)
	if !p.closed {
		select {
		case p.free <- h:
			p.mu.Unlock()
			return
		default:
		}
	}
	p.created--
	p.mu.Unlock()

	if err := p.closeFn(h); err != nil {
		p.opts.Logger.Warn("failed to destroy pooled handle: %v", err)
	}
}

// Close drains and destroys the free handles, then destroys handles still
// checked out by callers, bounding each destruction by DrainTimeout.
// Subsequent Acquire calls fail with "pool is closed".
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	held := make([]T, 0, len(p.active))
	for h := range p.active {
		held = append(held, h)
		delete(p.active, h)
	}
	p.mu.Unlock()

	var firstErr error
	drain := func(h T) {
		if err := p.closeWithTimeout(h); err != nil && firstErr == nil {
			firstErr = err
		}
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
	}

	for {
		select {
		case h := <-p.free:
			drain(h)
			continue
		default:
		}
		break
	}
	for _, h := range held {
		drain(h)
	}
	return firstErr
}

func (p *Pool[T]) closeWithTimeout(h T) error {
	done := make(chan error, 1)
	go func() { done <- p.closeFn(h) }()

	select {
	case err := <-done:
		return err
	case <-time.After(p.opts.DrainTimeout):
		return fmt.Errorf("handle destruction timed out after %s", p.opts.DrainTimeout)
	}
}

func (p *Pool[T]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Stats reports the free and total live handle counts.
func (p *Pool[T]) Stats() (free, created int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free), p.created
}
