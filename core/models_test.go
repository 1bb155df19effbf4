package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestRuleID_Deterministic(t *testing.T) {
	id1 := RuleID(10, 20, "All access must be logged")
	id2 := RuleID(10, 20, "All access must be logged")

	if id1 != id2 {
		t.Errorf("RuleID() produced different IDs for same inputs: %d vs %d", id1, id2)
	}
}

func TestRuleID_DistinguishesProvenance(t *testing.T) {
	base := RuleID(10, 20, "All access must be logged")

	tests := []struct {
		name string
		id   ID
	}{
		{"different policy", RuleID(11, 20, "All access must be logged")},
		{"different segment", RuleID(10, 21, "All access must be logged")},
		{"different text", RuleID(10, 20, "All access must be reviewed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == base {
				t.Errorf("RuleID() collided with base for %s", tt.name)
			}
		})
	}
}

func TestDocumentKind_String(t *testing.T) {
	tests := []struct {
		kind DocumentKind
		want string
	}{
		{KindPolicy, "policy"},
		{KindAudit, "audit"},
		{KindAny, "any"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("DocumentKind(%d).String() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
