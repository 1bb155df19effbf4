package mock

import (
	"context"

	"github.com/poiesic/verdict/ai"
)

// MockRemediationWriter is a test double for ai.RemediationWriter.
// It allows custom behavior injection via function fields.
type MockRemediationWriter struct {
	// SuggestRemediationFunc is called by SuggestRemediation if set.
	// If nil, returns a canned suggestion referencing the rule.
	SuggestRemediationFunc func(ctx context.Context, req ai.RemediationRequest) (string, error)

	callCount int
}

// NewMockRemediationWriter creates a mock remediation writer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockRemediationWriter().
func NewMockRemediationWriter() *MockRemediationWriter {
	return &MockRemediationWriter{}
}

// SuggestRemediation returns a canned suggestion by default.
func (m *MockRemediationWriter) SuggestRemediation(ctx context.Context, req ai.RemediationRequest) (string, error) {
	m.callCount++

	if m.SuggestRemediationFunc != nil {
		return m.SuggestRemediationFunc(ctx, req)
	}

	return "Review and update processes to satisfy: " + req.RuleText, nil
}

// CallCount returns the number of times SuggestRemediation was called.
func (m *MockRemediationWriter) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockRemediationWriter) Reset() {
	m.callCount = 0
	m.SuggestRemediationFunc = nil
}
