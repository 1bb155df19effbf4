package mock

import (
	"context"

	"github.com/poiesic/verdict/ai"
)

// MockViolationDetector is a test double for ai.ViolationDetector.
// It allows custom behavior injection via function fields.
type MockViolationDetector struct {
	// DetectViolationsFunc is called by DetectViolations if set.
	// If nil, reports no violations.
	DetectViolationsFunc func(ctx context.Context, segmentText string, rules []ai.RuleContext) ([]ai.Finding, error)

	callCount int
}

// NewMockViolationDetector creates a mock violation detector with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockViolationDetector().
func NewMockViolationDetector() *MockViolationDetector {
	return &MockViolationDetector{}
}

// DetectViolations reports no violations by default.
func (m *MockViolationDetector) DetectViolations(ctx context.Context, segmentText string, rules []ai.RuleContext) ([]ai.Finding, error) {
	m.callCount++

	if m.DetectViolationsFunc != nil {
		return m.DetectViolationsFunc(ctx, segmentText, rules)
	}

	return []ai.Finding{}, nil
}

// CallCount returns the number of times DetectViolations was called.
func (m *MockViolationDetector) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockViolationDetector) Reset() {
	m.callCount = 0
	m.DetectViolationsFunc = nil
}
