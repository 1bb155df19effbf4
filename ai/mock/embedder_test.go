package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	embedder := NewMockEmbedder()
	ctx := context.Background()

	first, err := embedder.EmbedText(ctx, "access must be logged")
	require.NoError(t, err)
	second, err := embedder.EmbedText(ctx, "access must be logged")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := embedder.EmbedText(ctx, "a different sentence entirely")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestMockEmbedder_UnitVectors(t *testing.T) {
	embedder := NewMockEmbedder()

	vectors, err := embedder.EmbedTexts(context.Background(), []string{
		"backups must be encrypted",
		"visitors must sign in",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	for _, vector := range vectors {
		require.Len(t, vector, 384)
		var sumSquares float64
		for _, v := range vector {
			sumSquares += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 0.001, "vectors must have unit length")
	}
}

func TestMockEmbedder_FunctionOverride(t *testing.T) {
	embedder := NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0, 0}
		}
		return out, nil
	}

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, 1, embedder.CallCount())

	embedder.Reset()
	assert.Zero(t, embedder.CallCount())
}
