package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_EmptyBlob(t *testing.T) {
	_, err := Extract(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotParseable)
}

func TestExtract_Garbage(t *testing.T) {
	_, err := Extract([]byte("this is not a pdf at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotParseable)
}

func TestExtract_TruncatedHeader(t *testing.T) {
	// Looks like a PDF for the first few bytes, then stops
	_, err := Extract([]byte("%PDF-1.7\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotParseable)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "collapses whitespace",
			input: "All  access\tmust\n\nbe   logged",
			want:  "All access must be logged",
		},
		{
			name:  "normalizes smart quotes",
			input: "The “policy” states it’s required",
			want:  `The "policy" states it's required`,
		},
		{
			name:  "normalizes dashes",
			input: "retention – 90 days — minimum",
			want:  "retention - 90 days - minimum",
		},
		{
			name:  "strips control characters",
			input: "clean\x00\x01 text\x7f here",
			want:  "clean text here",
		},
		{
			name:  "trims leading and trailing space",
			input: "  padded  ",
			want:  "padded",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}
