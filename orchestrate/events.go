package orchestrate

import (
	"time"
)

// EventType classifies a stage lifecycle event.
type EventType string

const (
	// EventStageStarted is published before an agent executes.
	EventStageStarted EventType = "stage_started"
	// EventStageCompleted is published after a successful execution.
	EventStageCompleted EventType = "stage_completed"
	// EventStageFailed is published after a failed execution.
	EventStageFailed EventType = "stage_failed"
)

// StageEvent describes one lifecycle transition of a pipeline stage.
type StageEvent struct {
	Type      EventType     `json:"type"`
	RunID     string        `json:"run_id"`
	Stage     string        `json:"stage"`
	Agent     string        `json:"agent,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventSink receives stage events. Implementations must not block; the
// supervisor publishes on its execution path.
type EventSink interface {
	Publish(event StageEvent)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Publish implements EventSink.
func (NoOpSink) Publish(StageEvent) {}

// ChannelSink buffers events on a channel for external consumers. Events
// are dropped when the buffer is full so publishing never blocks a run.
type ChannelSink struct {
	ch chan StageEvent
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSink{ch: make(chan StageEvent, buffer)}
}

// Publish implements EventSink.
func (s *ChannelSink) Publish(event StageEvent) {
	select {
	case s.ch <- event:
	default:
	}
}

// Events exposes the buffered event stream.
func (s *ChannelSink) Events() <-chan StageEvent { return s.ch }
