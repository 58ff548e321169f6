package agent

import (
	"sort"
	"sync"

	"github.com/hupe1980/agentgate/core"
)

// Registry maps routing keys to agents. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]core.Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]core.Agent)}
}

// Register binds an agent to a routing key, replacing any previous binding.
func (r *Registry) Register(key string, a core.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[key] = a
}

// Resolve returns the agent bound to key.
func (r *Registry) Resolve(key string) (core.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[key]
	if !ok {
		return nil, &core.AgentNotFoundError{Key: key}
	}
	return a, nil
}

// Keys returns all registered routing keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.agents))
	for k := range r.agents {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
