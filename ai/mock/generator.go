package mock

import (
	"context"
	"fmt"

	"github.com/poiesic/intentdb/ai"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, returns a canned reply echoing the user message.
	GenerateFunc func(ctx context.Context, system string, history []ai.Message, userMessage string) (string, error)

	callCount int
}

// NewMockGenerator creates a mock generator with default canned behavior.
// Note: Returns concrete type to allow test assertions and behavior injection.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns the injected behavior's result, or a canned reply.
func (m *MockGenerator) Generate(ctx context.Context, system string, history []ai.Message, userMessage string) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, system, history, userMessage)
	}

	return fmt.Sprintf("generated reply to: %s", userMessage), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
}
