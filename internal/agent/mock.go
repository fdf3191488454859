package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockAgent is a simple mock agent for testing and mock mode
// It returns predefined responses without making actual API calls
type MockAgent struct {
	mu             sync.Mutex
	responsePrefix string
	forcedResponse string
	forcedErr      error
	completions    []Completion
}

// NewMockAgent creates a new mock agent
func NewMockAgent() *MockAgent {
	return &MockAgent{
		responsePrefix: "Mock agent response",
	}
}

// SetResponse forces a specific response from the agent
func (m *MockAgent) SetResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forcedResponse = response
}

// SetJSON forces CompleteJSON to return v marshalled.
func (m *MockAgent) SetJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.SetResponse(string(data))
	return nil
}

// SetError makes every call fail with err.
func (m *MockAgent) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forcedErr = err
}

// Completions returns the completions received so far.
func (m *MockAgent) Completions() []Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Completion(nil), m.completions...)
}

func (m *MockAgent) respond(prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return "", m.forcedErr
	}
	if m.forcedResponse != "" {
		return m.forcedResponse, nil
	}
	return fmt.Sprintf("%s:\n\nI received your prompt (%d characters).\n\nPrompt preview: %s...",
		m.responsePrefix, len(prompt), truncateString(prompt, 100)), nil
}

// CompleteJSON records the completion and returns the forced response as JSON.
// A streaming completion receives the whole response as one chunk.
func (m *MockAgent) CompleteJSON(ctx context.Context, c Completion) (json.RawMessage, error) {
	m.mu.Lock()
	m.completions = append(m.completions, c)
	m.mu.Unlock()

	resp, err := m.respond(c.User)
	if err != nil {
		return nil, err
	}
	if c.OnChunk != nil {
		c.OnChunk(resp)
	}
	return ToJSON(resp), nil
}

// truncateString truncates a string to a maximum length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
