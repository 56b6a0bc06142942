// Package llm provides the synchronous "generate text" capability the
// orchestrator depends on. Provider selection, failover, and circuit
// breaking all live behind one Generator interface: text in, text out,
// or an error.
package llm

import (
	"context"
	"sync"
)

// Message is one turn of a model conversation.
type Message struct {
	// Role is "user" or "assistant".
	Role string
	// Content is the message text.
	Content string
}

// Request describes one model call.
type Request struct {
	// System is the optional system prompt.
	System string
	// Messages is the conversation so far, oldest first.
	Messages []Message
	// MaxTokens caps the response length. Zero means the provider default.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
}

// Generator is the single model-call capability. Implementations are
// safe for concurrent use.
type Generator interface {
	// Generate returns the model's text reply, or an error.
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies the provider for logs and breaker names.
	Name() string
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
