// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import "github.com/poiesic/verdict/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock instances of the four AI services.
type MockProvider struct {
	embedder    *MockEmbedder
	rules       *MockRuleExtractor
	detector    *MockViolationDetector
	remediation *MockRemediationWriter
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use the GetMockX() accessors to reach concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder:    NewMockEmbedder(),
		rules:       NewMockRuleExtractor(),
		detector:    NewMockViolationDetector(),
		remediation: NewMockRemediationWriter(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, rules *MockRuleExtractor, detector *MockViolationDetector, remediation *MockRemediationWriter) ai.AIProvider {
	return &MockProvider{
		embedder:    embedder,
		rules:       rules,
		detector:    detector,
		remediation: remediation,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// RuleExtractor returns the mock rule extractor.
func (p *MockProvider) RuleExtractor() ai.RuleExtractor {
	return p.rules
}

// ViolationDetector returns the mock violation detector.
func (p *MockProvider) ViolationDetector() ai.ViolationDetector {
	return p.detector
}

// RemediationWriter returns the mock remediation writer.
func (p *MockProvider) RemediationWriter() ai.RemediationWriter {
	return p.remediation
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockRuleExtractor returns the underlying mock rule extractor for test assertions.
func (p *MockProvider) GetMockRuleExtractor() *MockRuleExtractor {
	return p.rules
}

// GetMockViolationDetector returns the underlying mock violation detector for test assertions.
func (p *MockProvider) GetMockViolationDetector() *MockViolationDetector {
	return p.detector
}

// GetMockRemediationWriter returns the underlying mock remediation writer for test assertions.
func (p *MockProvider) GetMockRemediationWriter() *MockRemediationWriter {
	return p.remediation
}
