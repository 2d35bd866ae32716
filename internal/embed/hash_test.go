package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(0, true)
	defer func() { _ = e.Close() }()

	text := "def add(a, b): return a + b"

	first, err := e.Embed(context.Background(), text)
	require.NoError(t, err)

	// Bit-identical across repeated invocations.
	for i := 0; i < 5; i++ {
		again, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// And across independent instances (stands in for process restarts).
	other := NewHashEmbedder(0, true)
	defer func() { _ = other.Close() }()
	fresh, err := other.Embed(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, first, fresh)
}

func TestHashEmbedder_NormalizedUnitVector(t *testing.T) {
	e := NewHashEmbedder(128, true)
	vec, err := e.Embed(context.Background(), "vector index store with metadata")
	require.NoError(t, err)
	require.Len(t, vec, 128)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestHashEmbedder_EmptyInputZeroVector(t *testing.T) {
	e := NewHashEmbedder(64, true)

	for _, input := range []string{"", "   ", "\n\t"} {
		vec, err := e.Embed(context.Background(), input)
		require.NoError(t, err)
		require.Len(t, vec, 64)
		for _, v := range vec {
			assert.Zero(t, v)
		}
	}
}

func TestHashEmbedder_Identity(t *testing.T) {
	with := NewHashEmbedder(256, true)
	without := NewHashEmbedder(256, false)

	assert.Equal(t, Identity{ID: "hash-v1+bigrams", Dimension: 256}, with.Identity())
	assert.Equal(t, Identity{ID: "hash-v1", Dimension: 256}, without.Identity())
	assert.False(t, with.Identity().Equal(without.Identity()))
}

func TestHashEmbedder_BigramsChangeVectors(t *testing.T) {
	with := NewHashEmbedder(256, true)
	without := NewHashEmbedder(256, false)

	text := "open the vector index"
	a, err := with.Embed(context.Background(), text)
	require.NoError(t, err)
	b, err := without.Embed(context.Background(), text)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashEmbedder_SimilarTextsScoreCloser(t *testing.T) {
	e := NewHashEmbedder(256, true)
	ctx := context.Background()

	query, err := e.Embed(ctx, "parse the yaml config file")
	require.NoError(t, err)
	near, err := e.Embed(ctx, "config file parsing for yaml")
	require.NoError(t, err)
	far, err := e.Embed(ctx, "osprey nesting season migration")
	require.NoError(t, err)

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestHashEmbedder_EmbedBatchMatchesEmbed(t *testing.T) {
	e := NewHashEmbedder(128, true)
	ctx := context.Background()
	texts := []string{"alpha beta", "", "gammaDelta_epsilon"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestHashEmbedder_ClosedErrors(t *testing.T) {
	e := NewHashEmbedder(64, true)
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestTokenize_CodeIdentifiers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"camelCaseToken", []string{"camel", "case", "token"}},
		{"snake_case_token", []string{"snake", "case", "token"}},
		{"HTTPServer", []string{"http", "server"}},
		{"plain words here", []string{"plain", "words", "here"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.in), "input %q", tt.in)
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
