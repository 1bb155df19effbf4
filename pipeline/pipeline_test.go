package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/ai/mock"
	"github.com/poiesic/verdict/blobstore"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/embed"
	"github.com/poiesic/verdict/extract"
	badgerstore "github.com/poiesic/verdict/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	pipeline *Pipeline
	repos    *badgerstore.MemoryRepositories
	blobs    *blobstore.FilesystemStore
	provider *mock.MockProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	blobs, err := blobstore.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	provider := mock.NewMockProvider().(*mock.MockProvider)

	p, err := NewPipeline(Repositories{
		Documents:  repos.Documents,
		Segments:   repos.Segments,
		Rules:      repos.Rules,
		Violations: repos.Violations,
		Embeddings: repos.Embeddings,
	}, blobs, provider)
	require.NoError(t, err)
	t.Cleanup(p.Release)

	// Documents in tests carry plain text blobs, not PDFs.
	p.extractText = func(blob []byte) (string, error) {
		if len(blob) == 0 {
			return "", extract.ErrNotParseable
		}
		return string(blob), nil
	}

	return &testEnv{pipeline: p, repos: repos, blobs: blobs, provider: provider}
}

// upload creates a document record and stores its blob.
func (e *testEnv) upload(t *testing.T, orgID core.ID, kind core.DocumentKind, text string) *core.Document {
	t.Helper()
	ctx := context.Background()

	doc, err := e.repos.Documents.AddDocument(ctx, &core.Document{
		OrgId:    orgID,
		Kind:     kind,
		Filename: "test.pdf",
	})
	require.NoError(t, err)

	path, err := e.blobs.Put(ctx, orgID, doc.Id, []byte(text))
	require.NoError(t, err)

	doc, err = e.repos.Documents.AttachBlob(ctx, doc.Id, path, int64(len(text)))
	require.NoError(t, err)
	return doc
}

// toProcessing walks a document into processing, as trigger would.
func (e *testEnv) toProcessing(t *testing.T, id core.ID) {
	t.Helper()
	_, err := e.repos.Documents.UpdateDocumentStatus(context.Background(), id, core.StatusProcessing, "")
	require.NoError(t, err)
}

func (e *testEnv) status(t *testing.T, id core.ID) *core.Document {
	t.Helper()
	doc, err := e.repos.Documents.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func TestRunPolicy_ExtractsAndStoresRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.upload(t, 1, core.KindPolicy,
		"All production access must be logged. Logs shall be kept 90 days. Background only.")
	env.toProcessing(t, doc.Id)

	env.pipeline.runPolicy(ctx, doc.Id)

	got := env.status(t, doc.Id)
	assert.Equal(t, core.StatusCompleted, got.Status)
	assert.Empty(t, got.FailureReason)

	// Mock extractor turns each must/shall sentence into one rule
	rules, err := env.pipeline.ListRules(ctx, 1, doc.Id)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	for _, rule := range rules {
		assert.Equal(t, core.ID(1), rule.OrgId)
		assert.Equal(t, doc.Id, rule.PolicyId)
		assert.NotZero(t, rule.SourceSegmentId)
		assert.Equal(t, core.SeverityMedium, rule.Severity)
	}

	// Segments and embeddings persisted
	segments, err := env.repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	count, err := env.repos.Embeddings.CountByOrg(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, len(segments), count)
}

func TestRunPolicy_UnparseableBlobFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.upload(t, 1, core.KindPolicy, "")
	env.toProcessing(t, doc.Id)

	env.pipeline.runPolicy(ctx, doc.Id)

	got := env.status(t, doc.Id)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Contains(t, got.FailureReason, "stage=extract")
}

func TestRunPolicy_MissingBlobFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.repos.Documents.AddDocument(ctx, &core.Document{
		OrgId: 1, Kind: core.KindPolicy, Filename: "gone.pdf",
	})
	require.NoError(t, err)
	_, err = env.repos.Documents.AttachBlob(ctx, doc.Id, "org/1/999.pdf", 10)
	require.NoError(t, err)
	env.toProcessing(t, doc.Id)

	env.pipeline.runPolicy(ctx, doc.Id)

	got := env.status(t, doc.Id)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Contains(t, got.FailureReason, "stage=fetch")
}

func TestRunPolicy_WhitespaceOnlyCompletesEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.upload(t, 1, core.KindPolicy, "   ")
	env.toProcessing(t, doc.Id)

	// Whitespace extracts fine but yields no segments
	env.pipeline.extractText = func(blob []byte) (string, error) { return "", nil }
	env.pipeline.runPolicy(ctx, doc.Id)

	got := env.status(t, doc.Id)
	assert.Equal(t, core.StatusCompleted, got.Status)

	rules, err := env.pipeline.ListRules(ctx, 1, doc.Id)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRunPolicy_ExtractionExhaustionSkipsSegment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.provider.GetMockRuleExtractor().ExtractRulesFunc = func(ctx context.Context, segmentText string, contextTexts []string) ([]ai.RuleCandidate, error) {
		return nil, fmt.Errorf("%w: garbage output", ai.ErrSchema)
	}

	doc := env.upload(t, 1, core.KindPolicy, "Everything must be encrypted.")
	env.toProcessing(t, doc.Id)

	env.pipeline.runPolicy(ctx, doc.Id)

	// Skip-and-continue: the document still completes
	got := env.status(t, doc.Id)
	assert.Equal(t, core.StatusCompleted, got.Status)

	rules, err := env.pipeline.ListRules(ctx, 1, doc.Id)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRunPolicy_AllEmbeddingBatchesFailingFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	env.pipeline.embedClient = mustEmbedClient(t, env.provider.Embedder())

	doc := env.upload(t, 1, core.KindPolicy, "Everything must be encrypted.")
	env.toProcessing(t, doc.Id)

	env.pipeline.runPolicy(ctx, doc.Id)

	got := env.status(t, doc.Id)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Contains(t, got.FailureReason, "stage=embed")
}

func TestRunPolicy_ReprocessSupersedesRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.upload(t, 1, core.KindPolicy, "Data must be encrypted at rest.")
	env.toProcessing(t, doc.Id)
	env.pipeline.runPolicy(ctx, doc.Id)

	first, err := env.pipeline.ListRules(ctx, 1, doc.Id)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// New blob content for the same document
	path, err := env.blobs.Put(ctx, 1, doc.Id, []byte("Visitors must sign in. Badges shall be worn."))
	require.NoError(t, err)
	_, err = env.repos.Documents.AttachBlob(ctx, doc.Id, path, 10)
	require.NoError(t, err)

	_, err = env.repos.Documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusUploaded, "")
	require.NoError(t, err)
	env.toProcessing(t, doc.Id)
	env.pipeline.runPolicy(ctx, doc.Id)

	second, err := env.pipeline.ListRules(ctx, 1, doc.Id)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for _, rule := range second {
		assert.NotContains(t, rule.RuleText, "encrypted")
	}
}

func TestRunAudit_DetectsViolations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// First process a policy so rules exist in the index
	policy := env.upload(t, 1, core.KindPolicy, "All database access must be logged.")
	env.toProcessing(t, policy.Id)
	env.pipeline.runPolicy(ctx, policy.Id)

	rules, err := env.pipeline.ListRules(ctx, 1, policy.Id)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	ruleID := rules[0].Id

	// Detector flags every rule it is shown
	env.provider.GetMockViolationDetector().DetectViolationsFunc = func(ctx context.Context, segmentText string, rcs []ai.RuleContext) ([]ai.Finding, error) {
		findings := make([]ai.Finding, len(rcs))
		for i, rc := range rcs {
			findings[i] = ai.Finding{
				RuleID:      rc.ID,
				Explanation: "access was not logged",
				Severity:    "high",
			}
		}
		return findings, nil
	}

	audit := env.upload(t, 1, core.KindAudit, "We found database queries with no audit trail.")
	env.toProcessing(t, audit.Id)
	env.pipeline.runAudit(ctx, audit.Id)

	got := env.status(t, audit.Id)
	assert.Equal(t, core.StatusCompleted, got.Status)

	violations, err := env.pipeline.ListViolations(ctx, 1, audit.Id)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, core.ID(1), violations[0].OrgId)
	assert.Equal(t, audit.Id, violations[0].AuditDocumentId)
	assert.Equal(t, ruleID, violations[0].RuleId)
	assert.Equal(t, core.SeverityHigh, violations[0].Severity)
	assert.Equal(t, "access was not logged", violations[0].Explanation)

	// A caller holding the audit id under another organization reads nothing
	foreign, err := env.pipeline.ListViolations(ctx, 2, audit.Id)
	require.NoError(t, err)
	assert.Empty(t, foreign, "violation listings must stay inside the owning organization")
}

func TestRunAudit_NoPolicyCoverageCompletesClean(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	audit := env.upload(t, 1, core.KindAudit, "Nothing matches any policy here.")
	env.toProcessing(t, audit.Id)
	env.pipeline.runAudit(ctx, audit.Id)

	got := env.status(t, audit.Id)
	assert.Equal(t, core.StatusCompleted, got.Status)

	violations, err := env.pipeline.ListViolations(ctx, 1, audit.Id)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestRunAudit_DropsFindingsForUnknownRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	policy := env.upload(t, 1, core.KindPolicy, "Backups must be tested monthly.")
	env.toProcessing(t, policy.Id)
	env.pipeline.runPolicy(ctx, policy.Id)

	env.provider.GetMockViolationDetector().DetectViolationsFunc = func(ctx context.Context, segmentText string, rcs []ai.RuleContext) ([]ai.Finding, error) {
		return []ai.Finding{{RuleID: 999999, Explanation: "hallucinated", Severity: "critical"}}, nil
	}

	audit := env.upload(t, 1, core.KindAudit, "Backups were never tested.")
	env.toProcessing(t, audit.Id)
	env.pipeline.runAudit(ctx, audit.Id)

	violations, err := env.pipeline.ListViolations(ctx, 1, audit.Id)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestRunAudit_TenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Org 1 has a policy; org 2's audit must not see it
	policy := env.upload(t, 1, core.KindPolicy, "Sessions must expire after 15 minutes.")
	env.toProcessing(t, policy.Id)
	env.pipeline.runPolicy(ctx, policy.Id)

	env.provider.GetMockViolationDetector().DetectViolationsFunc = func(ctx context.Context, segmentText string, rcs []ai.RuleContext) ([]ai.Finding, error) {
		findings := make([]ai.Finding, len(rcs))
		for i, rc := range rcs {
			findings[i] = ai.Finding{RuleID: rc.ID, Explanation: "violated", Severity: "low"}
		}
		return findings, nil
	}

	audit := env.upload(t, 2, core.KindAudit, "Sessions never expire at all.")
	env.toProcessing(t, audit.Id)
	env.pipeline.runAudit(ctx, audit.Id)

	got := env.status(t, audit.Id)
	assert.Equal(t, core.StatusCompleted, got.Status)

	violations, err := env.pipeline.ListViolations(ctx, 2, audit.Id)
	require.NoError(t, err)
	assert.Empty(t, violations, "audit must not match rules from another organization")
}

func TestTrigger_WrongKind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	audit := env.upload(t, 1, core.KindAudit, "audit text")
	err := env.pipeline.TriggerPolicyProcessing(ctx, audit.Id)
	assert.ErrorIs(t, err, ErrWrongKind)

	policy := env.upload(t, 1, core.KindPolicy, "policy text")
	err = env.pipeline.TriggerAuditProcessing(ctx, policy.Id)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestTrigger_CompletedDocumentRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.upload(t, 1, core.KindPolicy, "Text must be stored.")
	env.toProcessing(t, doc.Id)
	env.pipeline.runPolicy(ctx, doc.Id)
	require.Equal(t, core.StatusCompleted, env.status(t, doc.Id).Status)

	err := env.pipeline.TriggerPolicyProcessing(ctx, doc.Id)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestTrigger_LeaseMakesTriggersIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.upload(t, 1, core.KindPolicy, "Rules must exist.")

	// Hold the lease manually to simulate an in-flight run
	require.True(t, env.pipeline.acquire(doc.Id))
	defer env.pipeline.release(doc.Id)

	// Second trigger is a silent no-op and leaves the status alone
	err := env.pipeline.TriggerPolicyProcessing(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusUploaded, env.status(t, doc.Id).Status)
}

func TestTrigger_AsyncRunCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Wrap the extractor to signal when the async run reaches it
	done := make(chan struct{})
	var once sync.Once
	env.provider.GetMockRuleExtractor().ExtractRulesFunc = func(ctx context.Context, segmentText string, contextTexts []string) ([]ai.RuleCandidate, error) {
		once.Do(func() { close(done) })
		return []ai.RuleCandidate{}, nil
	}

	doc := env.upload(t, 1, core.KindPolicy, "Audits must happen quarterly.")
	require.NoError(t, env.pipeline.TriggerPolicyProcessing(ctx, doc.Id))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("async run never reached rule extraction")
	}

	// Wait for the terminal status
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if env.status(t, doc.Id).Status.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, core.StatusCompleted, env.status(t, doc.Id).Status)
}

func TestReprocess_FailedDocumentRunsAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.upload(t, 1, core.KindPolicy, "")
	env.toProcessing(t, doc.Id)
	env.pipeline.runPolicy(ctx, doc.Id)
	require.Equal(t, core.StatusFailed, env.status(t, doc.Id).Status)

	// Fix the blob, then reprocess
	path, err := env.blobs.Put(ctx, 1, doc.Id, []byte("Access must be reviewed."))
	require.NoError(t, err)
	_, err = env.repos.Documents.AttachBlob(ctx, doc.Id, path, 24)
	require.NoError(t, err)

	require.NoError(t, env.pipeline.Reprocess(ctx, doc.Id))

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if env.status(t, doc.Id).Status.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, core.StatusCompleted, env.status(t, doc.Id).Status)
}

func TestNewPipeline_Validation(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	blobs, err := blobstore.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	full := Repositories{
		Documents:  repos.Documents,
		Segments:   repos.Segments,
		Rules:      repos.Rules,
		Violations: repos.Violations,
		Embeddings: repos.Embeddings,
	}

	_, err = NewPipeline(Repositories{}, blobs, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrRepositoriesRequired)

	_, err = NewPipeline(full, nil, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrBlobStoreRequired)

	_, err = NewPipeline(full, blobs, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func mustEmbedClient(t *testing.T, embedder ai.Embedder) *embed.Client {
	t.Helper()
	client, err := embed.NewClient(embedder, embed.WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	return client
}
