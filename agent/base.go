// Package agent contains the worker agents that make up the processing
// pipeline, the shared BaseAgent embedding and the registry the supervisor
// resolves workers from.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/model"
)

// BaseAgent bundles shared identity, model access and logging helpers.
// Embed it in concrete agent implementations and supply an Execute method
// to satisfy the core.Agent interface.
type BaseAgent struct {
	name        string        // Human-readable name
	description string        // Detailed description of agent's purpose
	model       model.Model   // Optional completion backend
	logger      logging.Logger
}

// BaseOptions configures a BaseAgent.
type BaseOptions struct {
	Description string
	Model       model.Model
	Logger      logging.Logger
}

// NewBaseAgent constructs a BaseAgent with generated description (customizable via options).
func NewBaseAgent(name string, optFns ...func(o *BaseOptions)) BaseAgent {
	opts := BaseOptions{
		Description: fmt.Sprintf("Agent %s", name),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return BaseAgent{
		name:        name,
		description: opts.Description,
		model:       opts.Model,
		logger:      opts.Logger,
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// Model returns the completion backend, or nil when the agent runs its
// deterministic synthesis path.
func (b *BaseAgent) Model() model.Model { return b.model }

// Logger returns the agent's logger.
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// generate runs a completion against the configured model. Without a model,
// or when the model fails, the deterministic fallback is returned so the
// pipeline keeps producing output.
func (b *BaseAgent) generate(ctx context.Context, instructions, prompt, fallback string) string {
	if b.model == nil {
		return fallback
	}
	resp, err := b.model.Complete(ctx, model.Request{
		Instructions: instructions,
		Prompt:       prompt,
	})
	if err != nil {
		b.logger.Warn("model completion failed for %s, using synthesized output: %v", b.name, err)
		return fallback
	}
	if resp.Text == "" {
		return fallback
	}
	return resp.Text
}

// retryGuidance extracts the prompt adjustments the supervisor attached for
// a regeneration attempt.
func retryGuidance(ec core.ExecutionContext) string {
	if ec.RetryCount == 0 {
		return ""
	}
	return ec.MetadataString("retry_adjustments")
}

// elapsedMillis returns the duration since start in milliseconds, for the
// execution_time_ms result metric.
func elapsedMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
