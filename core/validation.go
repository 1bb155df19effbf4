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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - OrgId must be non-zero (every document belongs to an organization)
//   - Kind must be policy or audit
//   - Filename must not be empty
//   - Status, when set, must be a defined status
//
// NOT validated (populated by the pipeline):
//   - BlobPath (set by the blob store on ingest)
//   - FailureReason (only meaningful on failed documents)
//   - ID (0 is valid from database sequences)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.OrgId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingOrg)
	}

	if err := ValidateDocumentKind(doc.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrInvalidDocument)
	}

	if doc.Status != 0 && (doc.Status < StatusUploaded || doc.Status > StatusFailed) {
		return fmt.Errorf("%w: %w: value %d", ErrInvalidDocument, ErrInvalidStatus, doc.Status)
	}

	return nil
}

// ValidateSegment validates a Segment according to domain rules.
func ValidateSegment(segment *Segment) error {
	if segment == nil {
		return fmt.Errorf("%w: segment is nil", ErrInvalidSegment)
	}

	if segment.DocumentId == 0 {
		return fmt.Errorf("%w: document id is required", ErrInvalidSegment)
	}

	if segment.Index < 0 {
		return fmt.Errorf("%w: index %d is negative", ErrInvalidSegment, segment.Index)
	}

	if segment.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrEmptyContent)
	}

	return nil
}

// ValidateRule validates a Rule according to domain rules.
//
// Category is NOT validated against a closed set: the extraction model may
// produce new categories and they are stored as given.
func ValidateRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is nil", ErrInvalidRule)
	}

	if rule.OrgId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRule, ErrMissingOrg)
	}

	if rule.PolicyId == 0 {
		return fmt.Errorf("%w: policy id is required", ErrInvalidRule)
	}

	if rule.RuleText == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRule, ErrEmptyContent)
	}

	if !ValidSeverity(rule.Severity) {
		return fmt.Errorf("%w: severity value %d", ErrInvalidRule, rule.Severity)
	}

	return nil
}

// ValidateViolation validates a Violation according to domain rules.
func ValidateViolation(violation *Violation) error {
	if violation == nil {
		return fmt.Errorf("%w: violation is nil", ErrInvalidViolation)
	}

	if violation.OrgId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidViolation, ErrMissingOrg)
	}

	if violation.AuditDocumentId == 0 {
		return fmt.Errorf("%w: audit document id is required", ErrInvalidViolation)
	}

	if violation.RuleId == 0 {
		return fmt.Errorf("%w: rule id is required", ErrInvalidViolation)
	}

	if !ValidSeverity(violation.Severity) {
		return fmt.Errorf("%w: severity value %d", ErrInvalidViolation, violation.Severity)
	}

	return nil
}

// ValidateDocumentKind validates that a DocumentKind names a real document
// role. KindAny is rejected: it exists only as a query filter.
func ValidateDocumentKind(kind DocumentKind) error {
	if kind != KindPolicy && kind != KindAudit {
		return fmt.Errorf("%w: value %d", ErrInvalidKind, kind)
	}
	return nil
}
