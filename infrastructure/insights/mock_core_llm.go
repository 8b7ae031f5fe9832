package insights

import (
	"context"
	"sync"
	"time"
)

// MockCoreLLM is a configurable CoreLLM implementation for tests.
// It records calls and supports canned responses, errors, and delays so
// middleware and generator behavior can be exercised without a provider.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Err           error
	Model         string
	ResponseDelay time.Duration

	CallCount  int
	LastPrompt string
	LastOpts   map[string]any
	CallTimes  []time.Time
}

// NewMockCoreLLM creates a mock with default successful behavior.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response:  `{"summary":"consistent performer"}`,
		TokensIn:  10,
		TokensOut: 20,
		Model:     "test-model",
	}
}

// DoRequest implements CoreLLM with the configured canned behavior.
func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastPrompt = prompt
	m.LastOpts = opts
	m.CallTimes = append(m.CallTimes, time.Now())
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", 0, 0, m.Err
	}
	return m.Response, m.TokensIn, m.TokensOut, nil
}

// GetModel returns the configured model name.
func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

// SetModel updates the configured model name.
func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// Calls returns the number of DoRequest invocations.
func (m *MockCoreLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}
