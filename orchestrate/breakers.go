package orchestrate

import (
	"sync"
	"time"

	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/rework"
)

// breakerSet lazily creates one circuit breaker per routing key so a
// misbehaving agent never trips the others.
type breakerSet struct {
	mu        sync.Mutex
	threshold int
	recovery  time.Duration
	logger    logging.Logger
	breakers  map[string]*rework.Breaker
}

func newBreakerSet(threshold int, recovery time.Duration, logger logging.Logger) *breakerSet {
	return &breakerSet{
		threshold: threshold,
		recovery:  recovery,
		logger:    logger,
		breakers:  make(map[string]*rework.Breaker),
	}
}

func (bs *breakerSet) forKey(key string) *rework.Breaker {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b, ok := bs.breakers[key]
	if !ok {
		b = rework.NewBreaker(bs.threshold, bs.recovery, rework.WithBreakerLogger(bs.logger))
		bs.breakers[key] = b
	}
	return b
}
