package core

// Status classifies the outcome of a stage invocation or a whole run.
type Status string

const (
	// StatusCompleted marks a fully successful outcome.
	StatusCompleted Status = "completed"
	// StatusFailed marks an outcome with no usable output.
	StatusFailed Status = "failed"
	// StatusDegraded marks a partial outcome: recovery attempts were
	// exhausted but some useful output exists.
	StatusDegraded Status = "degraded"
)

// ExecutionResult records the outcome of one stage invocation. Results are
// produced once and never mutated afterwards.
type ExecutionResult struct {
	Success   bool               `json:"success"`
	Status    Status             `json:"status"`
	Output    any                `json:"output,omitempty"`
	Error     string             `json:"error,omitempty"`
	AgentName string             `json:"agent_name"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// CompletedResult builds a successful result for the named agent.
func CompletedResult(agentName string, output any, metrics map[string]float64) ExecutionResult {
	return ExecutionResult{
		Success:   true,
		Status:    StatusCompleted,
		Output:    output,
		AgentName: agentName,
		Metrics:   metrics,
	}
}

// FailedResult builds a failed result carrying the error message.
func FailedResult(agentName string, err error) ExecutionResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ExecutionResult{
		Success:   false,
		Status:    StatusFailed,
		Error:     msg,
		AgentName: agentName,
	}
}

// DegradedResult builds a partial-success result keeping the best available output.
func DegradedResult(agentName string, output any, reason string, metrics map[string]float64) ExecutionResult {
	return ExecutionResult{
		Success:   true,
		Status:    StatusDegraded,
		Output:    output,
		Error:     reason,
		AgentName: agentName,
		Metrics:   metrics,
	}
}

// OutputText extracts a human-readable text form of the output for quality
// gating: strings pass through, maps prefer well-known text fields.
func (r ExecutionResult) OutputText() string {
	switch out := r.Output.(type) {
	case string:
		return out
	case map[string]any:
		for _, key := range []string{"recommendation", "report", "analysis", "summary", "text"} {
			if v, ok := out[key]; ok {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
	}
	return ""
}
