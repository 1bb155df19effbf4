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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/blobstore"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/embed"
	"github.com/poiesic/verdict/extract"
	"github.com/poiesic/verdict/segment"
	"github.com/poiesic/verdict/storage"
)

const (
	// defaultContextSegments is how many similar policy segments are retrieved
	// as context for rule extraction (the segment itself is then excluded).
	defaultContextSegments = 3

	// defaultCandidateSegments is how many similar policy segments seed the
	// candidate rule set when auditing a segment.
	defaultCandidateSegments = 5
)

// Repositories bundles the storage repositories the pipeline works against.
type Repositories struct {
	Documents  storage.DocumentRepository
	Segments   storage.SegmentRepository
	Rules      storage.RuleRepository
	Violations storage.ViolationRepository
	Embeddings storage.EmbeddingRepository
}

func (r Repositories) validate() error {
	if r.Documents == nil || r.Segments == nil || r.Rules == nil ||
		r.Violations == nil || r.Embeddings == nil {
		return ErrRepositoriesRequired
	}
	return nil
}

// Pipeline orchestrates the processing of uploaded documents.
// It manages the document status state machine, per-document leases, and
// asynchronous execution on a worker pool.
type Pipeline struct {
	repos       Repositories
	blobs       blobstore.Store
	extractor   ai.RuleExtractor
	detector    ai.ViolationDetector
	splitter    *segment.Splitter
	embedClient *embed.Client
	extractText func(blob []byte) (string, error)
	pool        *ants.Pool

	mu     sync.Mutex
	leases map[core.ID]struct{}

	contextSegments   int
	candidateSegments int
	logger            *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent document runs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithContextSegments sets how many similar policy segments are retrieved as
// context for rule extraction.
func WithContextSegments(n int) Option {
	return func(p *Pipeline) error {
		if n >= 1 {
			p.contextSegments = n
		}
		return nil
	}
}

// WithCandidateSegments sets how many similar policy segments seed the
// candidate rule set during audits.
func WithCandidateSegments(n int) Option {
	return func(p *Pipeline) error {
		if n >= 1 {
			p.candidateSegments = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default() scoped to the pipeline component.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a document processing pipeline.
func NewPipeline(
	repos Repositories,
	blobs blobstore.Store,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if err := repos.validate(); err != nil {
		return nil, err
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	splitter, err := segment.NewDefaultSplitter()
	if err != nil {
		return nil, err
	}

	embedClient, err := embed.NewClient(provider.Embedder())
	if err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repos:             repos,
		blobs:             blobs,
		extractor:         provider.RuleExtractor(),
		detector:          provider.ViolationDetector(),
		splitter:          splitter,
		embedClient:       embedClient,
		extractText:       extract.Extract,
		pool:              pool,
		leases:            make(map[core.ID]struct{}),
		contextSegments:   defaultContextSegments,
		candidateSegments: defaultCandidateSegments,
		logger:            slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// TriggerPolicyProcessing starts the policy run for a document.
// The document moves to processing synchronously; the stages run
// asynchronously. Triggering a document that is already running is a no-op.
func (p *Pipeline) TriggerPolicyProcessing(ctx context.Context, documentID core.ID) error {
	return p.trigger(ctx, documentID, core.KindPolicy)
}

// TriggerAuditProcessing starts the audit run for a document.
// The document moves to processing synchronously; the stages run
// asynchronously. Triggering a document that is already running is a no-op.
func (p *Pipeline) TriggerAuditProcessing(ctx context.Context, documentID core.ID) error {
	return p.trigger(ctx, documentID, core.KindAudit)
}

func (p *Pipeline) trigger(ctx context.Context, documentID core.ID, kind core.DocumentKind) error {
	doc, err := p.repos.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Kind != kind {
		return fmt.Errorf("%w: document %d is %s", ErrWrongKind, documentID, doc.Kind)
	}

	if !p.acquire(documentID) {
		p.logger.Info("document already processing, ignoring trigger", "document", documentID)
		return nil
	}

	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, documentID, core.StatusProcessing, ""); err != nil {
		p.release(documentID)
		return err
	}

	submitErr := p.pool.Submit(func() {
		defer p.release(documentID)
		runCtx := context.Background()
		if kind == core.KindPolicy {
			p.runPolicy(runCtx, documentID)
		} else {
			p.runAudit(runCtx, documentID)
		}
	})
	if submitErr != nil {
		p.release(documentID)
		p.fail(ctx, documentID, "submit", submitErr)
		return submitErr
	}

	return nil
}

// Reprocess resets a document to uploaded and runs it again. Prior segments,
// embeddings, and derived rules or violations are superseded by the new run.
// Valid only for documents in a terminal status.
func (p *Pipeline) Reprocess(ctx context.Context, documentID core.ID) error {
	doc, err := p.repos.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, documentID, core.StatusUploaded, ""); err != nil {
		return err
	}

	return p.trigger(ctx, documentID, doc.Kind)
}

// GetStatus returns the document record, including its current status and
// any recorded failure reason.
func (p *Pipeline) GetStatus(ctx context.Context, documentID core.ID) (*core.Document, error) {
	return p.repos.Documents.GetDocument(ctx, documentID)
}

// ListRules returns the rules extracted for an organization, optionally
// filtered to one source policy document (policyID 0 matches all).
func (p *Pipeline) ListRules(ctx context.Context, orgID, policyID core.ID) ([]*core.Rule, error) {
	return p.repos.Rules.ListRulesByOrg(ctx, orgID, policyID)
}

// ListViolations returns the violations detected in one audit document,
// scoped to the organization that owns it. A foreign audit id yields nothing.
func (p *Pipeline) ListViolations(ctx context.Context, orgID, auditID core.ID) ([]*core.Violation, error) {
	return p.repos.Violations.ListViolationsByAudit(ctx, orgID, auditID)
}

// acquire takes the per-document lease. Returns false if it is already held.
func (p *Pipeline) acquire(documentID core.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, held := p.leases[documentID]; held {
		return false
	}
	p.leases[documentID] = struct{}{}
	return true
}

func (p *Pipeline) release(documentID core.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.leases, documentID)
}

// fail moves a document to failed, recording the stage and cause.
func (p *Pipeline) fail(ctx context.Context, documentID core.ID, stage string, cause error) {
	p.logger.Error("document processing failed",
		"document", documentID,
		"stage", stage,
		"err", cause)

	reason := fmt.Sprintf("stage=%s: %v", stage, cause)
	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, documentID, core.StatusFailed, reason); err != nil {
		p.logger.Error("failed to record failure status", "document", documentID, "err", err)
	}
}

// Release releases the worker pool. In-flight runs are abandoned.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
