package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid policy document",
			doc: &Document{
				Id:       1,
				OrgId:    7,
				Kind:     KindPolicy,
				Filename: "security-policy.pdf",
				Status:   StatusUploaded,
			},
			wantErr: nil,
		},
		{
			name: "valid audit document with ID 0",
			doc: &Document{
				OrgId:    7,
				Kind:     KindAudit,
				Filename: "q3-audit.pdf",
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "missing organization",
			doc: &Document{
				Kind:     KindPolicy,
				Filename: "policy.pdf",
			},
			wantErr: ErrMissingOrg,
		},
		{
			name: "kind any is not storable",
			doc: &Document{
				OrgId:    7,
				Kind:     KindAny,
				Filename: "policy.pdf",
			},
			wantErr: ErrInvalidKind,
		},
		{
			name: "empty filename",
			doc: &Document{
				OrgId: 7,
				Kind:  KindPolicy,
			},
			wantErr: ErrInvalidDocument,
		},
		{
			name: "out of range status",
			doc: &Document{
				OrgId:    7,
				Kind:     KindPolicy,
				Filename: "policy.pdf",
				Status:   DocumentStatus(42),
			},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSegment(t *testing.T) {
	tests := []struct {
		name    string
		segment *Segment
		wantErr error
	}{
		{
			name: "valid segment",
			segment: &Segment{
				Id:         1,
				DocumentId: 2,
				Index:      0,
				Content:    "Employees must complete annual security training.",
				TokenCount: 8,
			},
			wantErr: nil,
		},
		{
			name:    "nil segment",
			segment: nil,
			wantErr: ErrInvalidSegment,
		},
		{
			name: "missing document",
			segment: &Segment{
				Content: "text",
			},
			wantErr: ErrInvalidSegment,
		},
		{
			name: "negative index",
			segment: &Segment{
				DocumentId: 2,
				Index:      -1,
				Content:    "text",
			},
			wantErr: ErrInvalidSegment,
		},
		{
			name: "empty content",
			segment: &Segment{
				DocumentId: 2,
			},
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSegment(tt.segment)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSegment() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSegment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    *Rule
		wantErr error
	}{
		{
			name: "valid rule",
			rule: &Rule{
				Id:              1,
				OrgId:           7,
				PolicyId:        3,
				SourceSegmentId: 4,
				RuleText:        "All access to customer data must be logged.",
				Category:        "data_privacy",
				Severity:        SeverityHigh,
			},
			wantErr: nil,
		},
		{
			name:    "nil rule",
			rule:    nil,
			wantErr: ErrInvalidRule,
		},
		{
			name: "missing organization",
			rule: &Rule{
				PolicyId: 3,
				RuleText: "text",
				Severity: SeverityMedium,
			},
			wantErr: ErrMissingOrg,
		},
		{
			name: "missing policy",
			rule: &Rule{
				OrgId:    7,
				RuleText: "text",
				Severity: SeverityMedium,
			},
			wantErr: ErrInvalidRule,
		},
		{
			name: "empty rule text",
			rule: &Rule{
				OrgId:    7,
				PolicyId: 3,
				Severity: SeverityMedium,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "zero severity",
			rule: &Rule{
				OrgId:    7,
				PolicyId: 3,
				RuleText: "text",
			},
			wantErr: ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.rule)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRule() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateViolation(t *testing.T) {
	tests := []struct {
		name      string
		violation *Violation
		wantErr   error
	}{
		{
			name: "valid violation",
			violation: &Violation{
				Id:              1,
				OrgId:           9,
				AuditDocumentId: 2,
				RuleId:          3,
				SegmentId:       4,
				Severity:        SeverityCritical,
				Explanation:     "Access logs were disabled during the review period.",
			},
			wantErr: nil,
		},
		{
			name:      "nil violation",
			violation: nil,
			wantErr:   ErrInvalidViolation,
		},
		{
			name: "missing org",
			violation: &Violation{
				AuditDocumentId: 2,
				RuleId:          3,
				Severity:        SeverityLow,
			},
			wantErr: ErrMissingOrg,
		},
		{
			name: "missing audit document",
			violation: &Violation{
				OrgId:    9,
				RuleId:   3,
				Severity: SeverityLow,
			},
			wantErr: ErrInvalidViolation,
		},
		{
			name: "missing rule",
			violation: &Violation{
				OrgId:           9,
				AuditDocumentId: 2,
				Severity:        SeverityLow,
			},
			wantErr: ErrInvalidViolation,
		},
		{
			name: "zero severity",
			violation: &Violation{
				OrgId:           9,
				AuditDocumentId: 2,
				RuleId:          3,
			},
			wantErr: ErrInvalidViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateViolation(tt.violation)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateViolation() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateViolation() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocumentKind(t *testing.T) {
	if err := ValidateDocumentKind(KindPolicy); err != nil {
		t.Errorf("ValidateDocumentKind(KindPolicy) = %v, want nil", err)
	}
	if err := ValidateDocumentKind(KindAudit); err != nil {
		t.Errorf("ValidateDocumentKind(KindAudit) = %v, want nil", err)
	}
	if err := ValidateDocumentKind(KindAny); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ValidateDocumentKind(KindAny) = %v, want ErrInvalidKind", err)
	}
	if err := ValidateDocumentKind(DocumentKind(9)); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ValidateDocumentKind(9) = %v, want ErrInvalidKind", err)
	}
}
