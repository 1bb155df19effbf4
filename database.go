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


package verdict

import (
	"log/slog"

	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/ai/openai"
	"github.com/poiesic/verdict/blobstore"
	"github.com/poiesic/verdict/pipeline"
	"github.com/poiesic/verdict/remediation"
	"github.com/poiesic/verdict/storage"
	"github.com/poiesic/verdict/storage/badger"
)

// Database aggregates the storage backend, repositories, blob store, and AI
// provider behind one handle. It is the entry point for embedding the
// compliance pipeline in an application.
type Database struct {
	backend       *badger.Backend
	documentRepo  storage.DocumentRepository
	segmentRepo   storage.SegmentRepository
	ruleRepo      storage.RuleRepository
	violationRepo storage.ViolationRepository
	embeddingRepo storage.EmbeddingRepository
	blobs         blobstore.Store
	provider      ai.AIProvider
	logger        *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
}

// WithAIConfig sets the AI service configuration used to build the provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider injects a prebuilt AI provider instead of constructing one
// from config. Used by tests to substitute mocks.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// NewDatabase opens the record database at filePath and the blob store at
// blobDir, wiring all repositories and the AI provider.
func NewDatabase(filePath, blobDir string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	documentRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	segmentRepo, err := badger.NewSegmentRepository(backend)
	if err != nil {
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	ruleRepo, err := badger.NewRuleRepository(backend)
	if err != nil {
		segmentRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	violationRepo, err := badger.NewViolationRepository(backend)
	if err != nil {
		ruleRepo.Close()
		segmentRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	embeddingRepo, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		violationRepo.Close()
		ruleRepo.Close()
		segmentRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	closeRepos := func() {
		embeddingRepo.Close()
		violationRepo.Close()
		ruleRepo.Close()
		segmentRepo.Close()
		documentRepo.Close()
		backend.Close()
	}

	blobs, err := blobstore.NewFilesystemStore(blobDir)
	if err != nil {
		closeRepos()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			closeRepos()
			return nil, err
		}
	}

	return &Database{
		backend:       backend,
		documentRepo:  documentRepo,
		segmentRepo:   segmentRepo,
		ruleRepo:      ruleRepo,
		violationRepo: violationRepo,
		embeddingRepo: embeddingRepo,
		blobs:         blobs,
		provider:      provider,
		logger:        slog.Default(),
	}, nil
}

// Close releases the AI provider, repositories, and the backing store.
func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.embeddingRepo.Close(); err != nil {
		db.logger.Error("error closing embedding repository", "err", err)
		return err
	}
	if err := db.violationRepo.Close(); err != nil {
		db.logger.Error("error closing violation repository", "err", err)
		return err
	}
	if err := db.ruleRepo.Close(); err != nil {
		db.logger.Error("error closing rule repository", "err", err)
		return err
	}
	if err := db.segmentRepo.Close(); err != nil {
		db.logger.Error("error closing segment repository", "err", err)
		return err
	}
	if err := db.documentRepo.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.documentRepo
}

func (db *Database) SegmentRepository() storage.SegmentRepository {
	return db.segmentRepo
}

func (db *Database) RuleRepository() storage.RuleRepository {
	return db.ruleRepo
}

func (db *Database) ViolationRepository() storage.ViolationRepository {
	return db.violationRepo
}

func (db *Database) EmbeddingRepository() storage.EmbeddingRepository {
	return db.embeddingRepo
}

func (db *Database) BlobStore() blobstore.Store {
	return db.blobs
}

// NewPipeline builds a document processing pipeline over this database.
func (db *Database) NewPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	return pipeline.NewPipeline(pipeline.Repositories{
		Documents:  db.documentRepo,
		Segments:   db.segmentRepo,
		Rules:      db.ruleRepo,
		Violations: db.violationRepo,
		Embeddings: db.embeddingRepo,
	}, db.blobs, db.provider, opts...)
}

// NewRemediationService builds a remediation service over this database.
func (db *Database) NewRemediationService() (*remediation.Service, error) {
	return remediation.NewService(db.violationRepo, db.ruleRepo, db.segmentRepo, db.provider.RemediationWriter())
}
