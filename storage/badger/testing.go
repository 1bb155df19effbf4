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


package badger

import "github.com/poiesic/verdict/storage"

// MemoryRepositories bundles in-memory repositories for testing.
// Caller must call Close when done.
type MemoryRepositories struct {
	Documents  storage.DocumentRepository
	Segments   storage.SegmentRepository
	Rules      storage.RuleRepository
	Violations storage.ViolationRepository
	Embeddings storage.EmbeddingRepository
	Backend    *Backend
}

// Close closes all repositories and the backing store.
func (m *MemoryRepositories) Close() error {
	m.Documents.Close()
	m.Segments.Close()
	m.Rules.Close()
	m.Violations.Close()
	m.Embeddings.Close()
	return m.Backend.Close()
}

// NewMemoryRepositories creates in-memory repositories for testing.
func NewMemoryRepositories() (*MemoryRepositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	docs, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	segments, err := NewSegmentRepository(backend)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}

	rules, err := NewRuleRepository(backend)
	if err != nil {
		segments.Close()
		docs.Close()
		backend.Close()
		return nil, err
	}

	violations, err := NewViolationRepository(backend)
	if err != nil {
		rules.Close()
		segments.Close()
		docs.Close()
		backend.Close()
		return nil, err
	}

	embeddings, err := NewEmbeddingRepository(backend)
	if err != nil {
		violations.Close()
		rules.Close()
		segments.Close()
		docs.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryRepositories{
		Documents:  docs,
		Segments:   segments,
		Rules:      rules,
		Violations: violations,
		Embeddings: embeddings,
		Backend:    backend,
	}, nil
}
