package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleEntries(t *testing.T) {
	t.Run("wrapped object", func(t *testing.T) {
		raw := `{"rules":[{"rule_text":"All access must be logged.","category":"audit_logging","severity":"high"}]}`
		entries, err := parseRuleEntries(raw)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "All access must be logged.", entries[0].RuleText)
		assert.Equal(t, "audit_logging", entries[0].Category)
		assert.Equal(t, "high", entries[0].Severity)
	})

	t.Run("bare array", func(t *testing.T) {
		raw := `[{"rule_text":"Backups must be encrypted.","category":"encryption","severity":"critical"}]`
		entries, err := parseRuleEntries(raw)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Backups must be encrypted.", entries[0].RuleText)
	})

	t.Run("markdown fences", func(t *testing.T) {
		raw := "```json\n{\"rules\":[]}\n```"
		entries, err := parseRuleEntries(raw)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("missing opening quote repaired", func(t *testing.T) {
		raw := `{"rules":[{"rule_text":"x", category":"general", severity":"low"}]}`
		entries, err := parseRuleEntries(raw)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "general", entries[0].Category)
		assert.Equal(t, "low", entries[0].Severity)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := parseRuleEntries("Sure! Here are the rules you asked for.")
		assert.Error(t, err)
	})
}

func TestParseFindingEntries(t *testing.T) {
	t.Run("wrapped object", func(t *testing.T) {
		raw := `{"violations":[{"rule_id":42,"explanation":"Access was not logged.","severity":"high"}]}`
		entries, err := parseFindingEntries(raw)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, uint64(42), entries[0].RuleID)
		assert.Equal(t, "Access was not logged.", entries[0].Explanation)
	})

	t.Run("bare array", func(t *testing.T) {
		raw := `[{"rule_id":7,"explanation":"no","severity":"low"}]`
		entries, err := parseFindingEntries(raw)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, uint64(7), entries[0].RuleID)
	})

	t.Run("empty violations", func(t *testing.T) {
		entries, err := parseFindingEntries(`{"violations":[]}`)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := parseFindingEntries(`{"violations":[{"rule_id":7,`)
		assert.Error(t, err)
	})
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "valid json unchanged",
			input:    `{"rule_text":"x","severity":"low"}`,
			expected: `{"rule_text":"x","severity":"low"}`,
		},
		{
			name:     "missing opening quote after comma",
			input:    `{"a":"b", severity":"low"}`,
			expected: `{"a":"b", "severity":"low"}`,
		},
		{
			name:     "missing opening quote after brace",
			input:    `{rule_text":"x"}`,
			expected: `{"rule_text":"x"}`,
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, repairJSON(tt.input))
		})
	}
}

func TestBuildRuleInput(t *testing.T) {
	t.Run("no context", func(t *testing.T) {
		input := buildRuleInput("segment text", nil)
		assert.Contains(t, input, "segment text")
		assert.NotContains(t, input, "Related policy context")
	})

	t.Run("with context", func(t *testing.T) {
		input := buildRuleInput("segment text", []string{"ctx a", "ctx b"})
		assert.Contains(t, input, "[context 1] ctx a")
		assert.Contains(t, input, "[context 2] ctx b")
		assert.Contains(t, input, "segment text")
	})
}
