package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/verdict/core"
)

// Key prefixes for different data types
const (
	documentPrefix    = "docrec"
	documentOrgPrefix = "docorg"
	documentIDSeq     = "docrecseq"
	segmentPrefix     = "segrec"
	segmentDocPrefix  = "segdoc"
	segmentIDSeq      = "segrecseq"
	embeddingPrefix   = "embrec"
	rulePrefix        = "rulerec"
	rulePolicyPrefix  = "rulepol"
	ruleSegmentPrefix = "ruleseg"
	violationPrefix   = "viorec"
	violationAudPref  = "vioaud"
	violationIDSeq    = "viorecseq"
)

// appendBE appends IDs to a key prefix in BigEndian order so lexicographic
// sort matches numeric sort.
func appendBE(prefix string, ids ...uint64) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8*len(ids))
	offset := copy(buf, prefixBytes)
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[offset:], id)
		offset += 8
	}
	return buf
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeDocumentOrgKey generates a composite key for the organization index.
// Format: prefix:orgID:uploadedAt:docID
func makeDocumentOrgKey(orgID core.ID, uploadedAt time.Time, docID core.ID) []byte {
	return appendBE(documentOrgPrefix, uint64(orgID), uint64(uploadedAt.UnixMicro()), uint64(docID))
}

// makePartialDocumentOrgKey generates a partial key for organization scans.
func makePartialDocumentOrgKey(orgID core.ID) []byte {
	return appendBE(documentOrgPrefix, uint64(orgID))
}

// makeSegmentKey generates a key for a segment by ID.
func makeSegmentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", segmentPrefix, id))
}

// makeSegmentDocKey generates a composite key for the document index.
// Format: prefix:docID:index
func makeSegmentDocKey(docID core.ID, index int) []byte {
	return appendBE(segmentDocPrefix, uint64(docID), uint64(index))
}

// makePartialSegmentDocKey generates a partial key for document segment scans.
func makePartialSegmentDocKey(docID core.ID) []byte {
	return appendBE(segmentDocPrefix, uint64(docID))
}

// makeEmbeddingKey generates a key for an embedding record.
// Format: prefix:orgID:segmentID. The orgID component comes first so one
// organization's records form a contiguous, prefix-scannable namespace.
func makeEmbeddingKey(orgID, segmentID core.ID) []byte {
	return appendBE(embeddingPrefix, uint64(orgID), uint64(segmentID))
}

// makeEmbeddingNamespace generates the key prefix of one organization's
// vector index namespace.
func makeEmbeddingNamespace(orgID core.ID) []byte {
	return appendBE(embeddingPrefix, uint64(orgID))
}

// makeRuleKey generates a key for a rule by ID.
func makeRuleKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", rulePrefix, id))
}

// makeRulePolicyKey generates a composite key for the policy index.
// Format: prefix:orgID:policyID:ruleID
func makeRulePolicyKey(orgID, policyID, ruleID core.ID) []byte {
	return appendBE(rulePolicyPrefix, uint64(orgID), uint64(policyID), uint64(ruleID))
}

// makePartialRulePolicyKey generates a partial key for policy rule scans.
// With policyID=0 the prefix covers every policy of the organization.
func makePartialRulePolicyKey(orgID, policyID core.ID) []byte {
	if policyID == 0 {
		return appendBE(rulePolicyPrefix, uint64(orgID))
	}
	return appendBE(rulePolicyPrefix, uint64(orgID), uint64(policyID))
}

// makeRuleSegmentKey generates a composite key for the source segment index.
// Format: prefix:orgID:segmentID:ruleID
func makeRuleSegmentKey(orgID, segmentID, ruleID core.ID) []byte {
	return appendBE(ruleSegmentPrefix, uint64(orgID), uint64(segmentID), uint64(ruleID))
}

// makePartialRuleSegmentKey generates a partial key for source segment scans.
func makePartialRuleSegmentKey(orgID, segmentID core.ID) []byte {
	return appendBE(ruleSegmentPrefix, uint64(orgID), uint64(segmentID))
}

// makeViolationKey generates a key for a violation by ID.
func makeViolationKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", violationPrefix, id))
}

// makeViolationAuditKey generates a composite key for the audit index.
// Format: prefix:orgID:auditID:detectedAt:violationID. The orgID component
// comes first so audit listings never cross a tenancy boundary.
func makeViolationAuditKey(orgID, auditID core.ID, detectedAt time.Time, violationID core.ID) []byte {
	return appendBE(violationAudPref, uint64(orgID), uint64(auditID), uint64(detectedAt.UnixMicro()), uint64(violationID))
}

// makePartialViolationAuditKey generates a partial key for audit scans.
func makePartialViolationAuditKey(orgID, auditID core.ID) []byte {
	return appendBE(violationAudPref, uint64(orgID), uint64(auditID))
}
