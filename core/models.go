package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentKind identifies the role a document plays in the pipeline.
type DocumentKind int

const (
	// KindAny matches any document kind. Used only as a query filter.
	KindAny DocumentKind = iota
	// KindPolicy marks a document as a source of compliance rules.
	KindPolicy
	// KindAudit marks a document as a subject of violation detection.
	KindAudit
)

// String returns the kind as a lowercase label.
func (k DocumentKind) String() string {
	switch k {
	case KindPolicy:
		return "policy"
	case KindAudit:
		return "audit"
	default:
		return "any"
	}
}

// Document represents an uploaded file owned by exactly one organization.
// Its status is mutated only by the processing pipeline.
type Document struct {
	Id            ID
	OrgId         ID
	Kind          DocumentKind
	Filename      string
	BlobPath      string // Opaque handle into the blob store
	Status        DocumentStatus
	FailureReason string // Populated when Status is StatusFailed
	FileSize      int64
	UploadedAt    time.Time // When the document was ingested
	UpdatedAt     time.Time // When the record was last updated
}

// Segment represents an ordered slice of a document's normalized text.
// Segments are immutable once created and are superseded wholesale when
// the owning document is reprocessed.
type Segment struct {
	Id         ID
	DocumentId ID
	Index      int // Position within the document, contiguous from 0
	Content    string
	TokenCount int
}

// EmbeddingRecord is the vector representation of one segment plus the
// retrieval metadata stored in the organization's vector index.
type EmbeddingRecord struct {
	SegmentId  ID
	DocumentId ID
	OrgId      ID
	Kind       DocumentKind
	Preview    string // First 200 characters of the segment content
	Vector     []float32
}

// Rule represents a structured compliance requirement extracted from a
// policy segment. Rules are read-only after creation; reprocessing the
// policy supersedes them.
type Rule struct {
	Id              ID
	OrgId           ID
	PolicyId        ID
	SourceSegmentId ID
	RuleText        string
	Category        string
	Severity        Severity
	CreatedAt       time.Time
}

// RuleID derives a deterministic rule identifier from its provenance and text,
// so re-extracting the same requirement from the same segment cannot create
// duplicates.
func RuleID(policyID, segmentID ID, ruleText string) ID {
	return IDFromContent(fmt.Sprintf("%d:%d:%s", policyID, segmentID, ruleText))
}

// Violation represents a detected breach of a Rule by one segment of an
// audit document. Remediation may be attached later without altering the
// other fields.
type Violation struct {
	Id              ID
	OrgId           ID
	AuditDocumentId ID
	RuleId          ID
	SegmentId       ID
	Severity        Severity
	Explanation     string
	Remediation     string // Empty until a remediation suggestion is attached
	DetectedAt      time.Time
}

// SegmentMatch represents a similarity-search hit from the vector index.
type SegmentMatch struct {
	Record *EmbeddingRecord
	Score  float32
}
