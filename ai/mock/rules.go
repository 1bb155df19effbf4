package mock

import (
	"context"
	"strings"

	"github.com/poiesic/verdict/ai"
)

// MockRuleExtractor is a test double for ai.RuleExtractor.
// It allows custom behavior injection via function fields.
type MockRuleExtractor struct {
	// ExtractRulesFunc is called by ExtractRules if set.
	// If nil, uses default sentence-based extraction.
	ExtractRulesFunc func(ctx context.Context, segmentText string, contextTexts []string) ([]ai.RuleCandidate, error)

	callCount int
}

// NewMockRuleExtractor creates a mock rule extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockRuleExtractor().
func NewMockRuleExtractor() *MockRuleExtractor {
	return &MockRuleExtractor{}
}

// ExtractRules extracts simple mock rules from policy text.
// Default behavior: each sentence containing "must" or "shall" becomes one
// medium-severity general rule.
func (m *MockRuleExtractor) ExtractRules(ctx context.Context, segmentText string, contextTexts []string) ([]ai.RuleCandidate, error) {
	m.callCount++

	if m.ExtractRulesFunc != nil {
		return m.ExtractRulesFunc(ctx, segmentText, contextTexts)
	}

	candidates := []ai.RuleCandidate{}
	for _, sentence := range strings.Split(segmentText, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		if !strings.Contains(lower, "must") && !strings.Contains(lower, "shall") {
			continue
		}
		candidates = append(candidates, ai.RuleCandidate{
			RuleText: sentence + ".",
			Category: "general",
			Severity: "medium",
		})
	}

	return candidates, nil
}

// CallCount returns the number of times ExtractRules was called.
func (m *MockRuleExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockRuleExtractor) Reset() {
	m.callCount = 0
	m.ExtractRulesFunc = nil
}
