// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.RuleExtractor,
// ai.ViolationDetector, ai.RemediationWriter, and ai.AIProvider for use in
// unit tests. The mocks allow tests to run without external AI service
// dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	embeddings, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockExtractor := mock.NewMockRuleExtractor()
//	mockExtractor.ExtractRulesFunc = func(ctx context.Context, segmentText string, contextTexts []string) ([]ai.RuleCandidate, error) {
//	    return []ai.RuleCandidate{{RuleText: "Access must be logged.", Category: "audit_logging", Severity: "high"}}, nil
//	}
//
//	// Check call counts
//	count := mockExtractor.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockRuleExtractor: Turns each sentence containing "must" or "shall" into a rule
//   - MockViolationDetector: Reports no violations
//   - MockRemediationWriter: Returns a canned suggestion
//   - MockProvider: Aggregates the four mock services
package mock
