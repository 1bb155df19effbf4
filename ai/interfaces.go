package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// RuleExtractor extracts structured compliance rules from policy text.
// Implementations must be thread-safe for concurrent use.
type RuleExtractor interface {
	// ExtractRules analyzes one policy segment, optionally with related
	// segments as context, and returns the compliance requirements it
	// states. Returns an empty slice when the segment states no rules.
	// Returns ErrSchema (wrapped) when the model cannot produce output
	// matching the expected structure after retries.
	ExtractRules(ctx context.Context, segmentText string, contextTexts []string) ([]RuleCandidate, error)
}

// ViolationDetector evaluates audit text against compliance rules.
// Implementations must be thread-safe for concurrent use.
type ViolationDetector interface {
	// DetectViolations checks one audit segment against a set of rules and
	// returns a finding for each rule the segment violates. Compliant rules
	// produce no finding. Returns an empty slice when nothing is violated.
	DetectViolations(ctx context.Context, segmentText string, rules []RuleContext) ([]Finding, error)
}

// RemediationWriter drafts remediation suggestions for detected violations.
type RemediationWriter interface {
	// SuggestRemediation produces a short remediation suggestion for one
	// violation. Implementations should not fail a caller that can fall
	// back to a generic suggestion.
	SuggestRemediation(ctx context.Context, req RemediationRequest) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the model-backed services, ensuring they
// share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// RuleExtractor returns the rule extraction service.
	// The returned RuleExtractor is safe for concurrent use.
	RuleExtractor() RuleExtractor

	// ViolationDetector returns the violation detection service.
	// The returned ViolationDetector is safe for concurrent use.
	ViolationDetector() ViolationDetector

	// RemediationWriter returns the remediation drafting service.
	RemediationWriter() RemediationWriter

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
