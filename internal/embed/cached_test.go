package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps HashEmbedder and counts how many texts reach
// the underlying provider.
type countingEmbedder struct {
	*HashEmbedder
	embedCalls int
	batchTexts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	return c.HashEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchTexts += len(texts)
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_EmbedHitsCache(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(64, true)}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "repeated query text")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "repeated query text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_BatchOnlyMissesReachProvider(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(64, true)}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "warm")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"warm", "cold one", "cold two"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Only the two misses should have been batched to the provider.
	assert.Equal(t, 2, inner.batchTexts)

	direct, err := NewHashEmbedder(64, true).Embed(ctx, "cold one")
	require.NoError(t, err)
	assert.Equal(t, direct, results[1])
}

func TestCachedEmbedder_IdentityPassesThrough(t *testing.T) {
	inner := NewHashEmbedder(256, true)
	cached := NewCachedEmbedder(inner, 10)

	assert.Equal(t, inner.Identity(), cached.Identity())
}

func TestCachedEmbedder_KeysIncludeIdentity(t *testing.T) {
	a := NewCachedEmbedder(NewHashEmbedder(64, true), 10)
	b := NewCachedEmbedder(NewHashEmbedder(64, false), 10)

	assert.NotEqual(t, a.cacheKey("same text"), b.cacheKey("same text"))
}
