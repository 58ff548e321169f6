// Package model defines the provider-agnostic completion interface used by
// agents, plus a deterministic mock for tests. Concrete providers live in
// the model/anthropic and model/openai subpackages.
package model

import (
	"context"
	"sync"
)

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string  `json:"instructions"` // System prompt for the model
	Prompt       string  `json:"prompt"`       // User turn content
	MaxTokens    int64   `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion returned by a provider.
type Response struct {
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	fallback  string
	err       error
	calls     []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetFallback sets the completion returned for prompts without a canned
// response.
func (m *MockModel) SetFallback(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
}

// SetError makes every subsequent Complete call fail with err.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of every request seen so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return Response{}, m.err
	}
	text, ok := m.responses[req.Prompt]
	if !ok {
		text = m.fallback
	}
	return Response{Text: text, FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
