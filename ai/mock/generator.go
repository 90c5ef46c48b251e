package mock

import (
	"context"
	"strings"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, echoes the prompt in a canned answer.
	GenerateFunc func(ctx context.Context, system, prompt string) (string, error)

	// GenerateJSONFunc is called by GenerateJSON if set.
	// If nil, returns an empty JSON object.
	GenerateJSONFunc func(ctx context.Context, system, prompt string) (string, error)

	callCount int
}

// NewMockGenerator creates a mock generator with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns a canned completion.
func (m *MockGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, system, prompt)
	}

	// Default: echo the first prompt line so tests can assert plumbing
	first, _, _ := strings.Cut(prompt, "\n")
	return "mock answer to: " + first, nil
}

// GenerateJSON returns a canned JSON completion.
func (m *MockGenerator) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	m.callCount++

	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, system, prompt)
	}

	return "{}", nil
}

// CallCount returns the number of times any method was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
	m.GenerateJSONFunc = nil
}
