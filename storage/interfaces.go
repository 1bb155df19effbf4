package storage

import (
	"context"

	"github.com/poiesic/verdict/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository
	// AddDocument adds a document to storage.
	// For documents with ID=0, generates a new ID from sequence.
	// Sets UploadedAt/UpdatedAt timestamps if not already set.
	// Returns the document with generated ID and timestamps populated.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// UpdateDocumentStatus moves a document to a new status. The reason is
	// stored verbatim on the record: the failure cause for failed documents,
	// a coverage note for partially embedded ones, empty to clear.
	// Returns core.ErrInvalidTransition if the move is not allowed and
	// ErrNotFound if the document doesn't exist.
	UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus, reason string) (*core.Document, error)

	// AttachBlob records the stored blob location and size on a document.
	// Returns ErrNotFound if the document doesn't exist.
	AttachBlob(ctx context.Context, id core.ID, blobPath string, fileSize int64) (*core.Document, error)

	// ListDocumentsByOrg retrieves all documents owned by an organization,
	// optionally filtered by kind (core.KindAny matches all), ordered by upload time.
	ListDocumentsByOrg(ctx context.Context, orgID core.ID, kind core.DocumentKind) ([]*core.Document, error)
}

// SegmentRepository provides operations for managing document segments.
type SegmentRepository interface {
	Repository
	// ReplaceSegments atomically replaces all segments of a document.
	// Prior segments are removed in the same transaction, so readers never
	// observe a mix of old and new segments. Segments with ID=0 get
	// sequence-generated IDs. Returns the segments with IDs populated.
	ReplaceSegments(ctx context.Context, documentID core.ID, segments []*core.Segment) ([]*core.Segment, error)

	// GetSegment retrieves a single segment by ID.
	// Returns ErrNotFound if the segment doesn't exist.
	GetSegment(ctx context.Context, id core.ID) (*core.Segment, error)

	// GetSegmentsByDocument retrieves all segments of a document ordered by index.
	GetSegmentsByDocument(ctx context.Context, documentID core.ID) ([]*core.Segment, error)

	// DeleteSegmentsByDocument removes all segments of a document.
	DeleteSegmentsByDocument(ctx context.Context, documentID core.ID) error
}

// RuleRepository provides operations for managing extracted compliance rules.
type RuleRepository interface {
	Repository
	// AddRules adds one or more rules to storage. Rules carry content-based
	// IDs (core.RuleID), so re-adding an identical rule overwrites in place.
	// Sets CreatedAt if not already set. Returns the rules as stored.
	AddRules(ctx context.Context, rules ...*core.Rule) ([]*core.Rule, error)

	// GetRule retrieves a single rule by ID.
	// Returns ErrNotFound if the rule doesn't exist.
	GetRule(ctx context.Context, id core.ID) (*core.Rule, error)

	// GetRulesBySourceSegments retrieves all rules extracted from any of the
	// given segments, scoped to one organization.
	GetRulesBySourceSegments(ctx context.Context, orgID core.ID, segmentIDs ...core.ID) ([]*core.Rule, error)

	// ListRulesByOrg retrieves rules owned by an organization, optionally
	// filtered by source policy (policyID=0 matches all).
	ListRulesByOrg(ctx context.Context, orgID core.ID, policyID core.ID) ([]*core.Rule, error)

	// DeleteRulesByPolicy removes all rules extracted from a policy document.
	// Used to supersede rules when the policy is reprocessed.
	DeleteRulesByPolicy(ctx context.Context, orgID, policyID core.ID) error
}

// ViolationRepository provides operations for managing detected violations.
type ViolationRepository interface {
	Repository
	// AddViolations adds one or more violations to storage.
	// For violations with ID=0, generates new IDs from sequence.
	// Sets DetectedAt if not already set. Returns the violations as stored.
	AddViolations(ctx context.Context, violations ...*core.Violation) ([]*core.Violation, error)

	// GetViolation retrieves a single violation by ID.
	// Returns ErrNotFound if the violation doesn't exist.
	GetViolation(ctx context.Context, id core.ID) (*core.Violation, error)

	// ListViolationsByAudit retrieves all violations detected in an audit
	// document, ordered by detection time. The listing is scoped to one
	// organization: an audit id owned by another organization yields nothing.
	ListViolationsByAudit(ctx context.Context, orgID, auditID core.ID) ([]*core.Violation, error)

	// AttachRemediation stores a remediation suggestion on an existing
	// violation without altering its other fields.
	// Returns ErrNotFound if the violation doesn't exist.
	AttachRemediation(ctx context.Context, id core.ID, remediation string) (*core.Violation, error)

	// DeleteViolationsByAudit removes all violations of an audit document
	// within one organization. Used to supersede findings when the audit is
	// reprocessed.
	DeleteViolationsByAudit(ctx context.Context, orgID, auditID core.ID) error
}

// EmbeddingRepository is the tenant vector index. Every operation is scoped
// to one organization's namespace; vectors from other organizations are
// structurally unreachable.
type EmbeddingRepository interface {
	Repository
	// UpsertEmbeddings inserts or replaces embedding records in the
	// organization's namespace, keyed by segment ID.
	UpsertEmbeddings(ctx context.Context, orgID core.ID, records ...*core.EmbeddingRecord) error

	// QuerySimilar finds the k records most similar to the query vector
	// within the organization's namespace, optionally filtered by document
	// kind (core.KindAny matches all). Similarity is cosine over normalized
	// vectors. Results are ordered by score descending with ties broken by
	// segment ID ascending. An empty namespace yields an empty result.
	QuerySimilar(ctx context.Context, orgID core.ID, vector []float32, k int, kind core.DocumentKind) ([]*core.SegmentMatch, error)

	// DeleteByDocument removes all embedding records of one document from
	// the organization's namespace.
	DeleteByDocument(ctx context.Context, orgID, documentID core.ID) error

	// CountByOrg returns the number of records in the organization's namespace.
	CountByOrg(ctx context.Context, orgID core.ID) (int, error)
}
