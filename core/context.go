package core

import (
	"github.com/google/uuid"
)

// ExecutionContext carries the identity and metadata of a single stage
// invocation. It is immutable for the duration of one stage: retries and
// metadata changes derive a new context instead of mutating the receiver,
// so concurrent branches can never observe each other's adjustments.
type ExecutionContext struct {
	RunID      string         `json:"run_id"`
	UserID     string         `json:"user_id"`
	ThreadID   string         `json:"thread_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	RetryCount int            `json:"retry_count"`
}

// NewExecutionContext creates a context for a fresh run with a generated run id.
func NewExecutionContext(userID, threadID string) ExecutionContext {
	return ExecutionContext{
		RunID:    uuid.NewString(),
		UserID:   userID,
		ThreadID: threadID,
		Metadata: map[string]any{},
	}
}

// WithRetry derives a new context for a retry attempt, incrementing the
// retry counter. The metadata map is copied so adjustments applied to the
// retry never leak into the original context.
func (c ExecutionContext) WithRetry() ExecutionContext {
	nc := c
	nc.RetryCount++
	nc.Metadata = copyMetadata(c.Metadata)
	return nc
}

// WithMetadata derives a new context with the given key set.
func (c ExecutionContext) WithMetadata(key string, value any) ExecutionContext {
	nc := c
	nc.Metadata = copyMetadata(c.Metadata)
	nc.Metadata[key] = value
	return nc
}

// MetadataString returns a string metadata value, or "" when absent or not a string.
func (c ExecutionContext) MetadataString(key string) string {
	if v, ok := c.Metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
