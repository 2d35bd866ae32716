package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devinsight/devrag/internal/chunk"
	"github.com/devinsight/devrag/internal/embed"
	derrors "github.com/devinsight/devrag/internal/errors"
)

func buildTestIndex(t *testing.T, embedder embed.Embedder, texts map[string]string) *Index {
	t.Helper()
	ix := New(embedder.Identity())

	// Insert in sorted-path order for deterministic ordinals.
	paths := make([]string, 0, len(texts))
	for p := range texts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		text := texts[path]
		vec, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		require.NoError(t, ix.Add(chunk.Chunk{
			ID:         chunk.ChunkID(path, 0, text),
			SourcePath: path,
			Text:       text,
			Origin:     chunk.OriginFile,
			Position:   0,
		}, vec))
	}
	return ix
}

func TestIndex_SearchFindsRelevantChunk(t *testing.T) {
	embedder := embed.NewHashEmbedder(256, true)
	ix := buildTestIndex(t, embedder, map[string]string{
		"math.py":   "def add(a, b): return a + b",
		"server.go": "func handleRequest(w http.ResponseWriter, r *http.Request)",
		"notes.md":  "meeting notes from the planning session",
	})

	query, err := embedder.Embed(context.Background(), "add two numbers a b")
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), query, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "math.py", results[0].Chunk.SourcePath)

	// Scores descend.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestIndex_ExactTextIsTopResult(t *testing.T) {
	embedder := embed.NewHashEmbedder(256, true)
	ix := buildTestIndex(t, embedder, map[string]string{
		"math.py":   "def add(a, b): return a + b",
		"other.py":  "def subtract(a, b): return a - b",
		"readme.md": "installation instructions",
	})

	// Querying with a chunk's exact text ranks that chunk first with
	// the maximum achievable score for this embedder.
	query, err := embedder.Embed(context.Background(), "def add(a, b): return a + b")
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), query, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "math.py", results[0].Chunk.SourcePath)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestIndex_EmptySearch(t *testing.T) {
	ix := New(embed.Identity{ID: "hash-v1+bigrams", Dimension: 8})

	results, err := ix.Search(context.Background(), make([]float32, 8), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_ZeroQueryVectorReturnsEmpty(t *testing.T) {
	embedder := embed.NewHashEmbedder(64, true)
	ix := buildTestIndex(t, embedder, map[string]string{
		"a.md": "hello world",
	})

	// A whitespace-only query embeds to the zero vector; cosine
	// similarity against it is undefined, so nothing ranks.
	query, err := embedder.Embed(context.Background(), "   ")
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), query, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	// The empty slice stays JSON-encodable (no NaN scores).
	_, err = json.Marshal(results)
	require.NoError(t, err)
}

func TestIndex_KLargerThanCount(t *testing.T) {
	embedder := embed.NewHashEmbedder(64, true)
	ix := buildTestIndex(t, embedder, map[string]string{
		"a.txt": "first document",
		"b.txt": "second document",
	})

	query, err := embedder.Embed(context.Background(), "document")
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), query, 100)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndex_DimensionMismatchRejected(t *testing.T) {
	ix := New(embed.Identity{ID: "hash-v1", Dimension: 64})

	err := ix.Add(chunk.Chunk{ID: "abc", Text: "x"}, make([]float32, 32))
	assert.Error(t, err)

	_, err = ix.Search(context.Background(), make([]float32, 32), 1)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	embedder := embed.NewHashEmbedder(256, true)
	ix := buildTestIndex(t, embedder, map[string]string{
		"math.py":  "def add(a, b): return a + b",
		"notes.md": "deployment checklist for the staging cluster",
	})

	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, ix.Save(dir))

	assert.FileExists(t, filepath.Join(dir, VectorsFile))
	assert.FileExists(t, filepath.Join(dir, MetadataFile))

	loaded, err := Load(dir, embedder.Identity())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count())

	query, err := embedder.Embed(context.Background(), "add numbers")
	require.NoError(t, err)
	results, err := loaded.Search(context.Background(), query, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "math.py", results[0].Chunk.SourcePath)
	assert.Equal(t, chunk.OriginFile, results[0].Chunk.Origin)
}

func TestLoad_FingerprintMismatchBeforeVectors(t *testing.T) {
	embedder := embed.NewHashEmbedder(256, true)
	ix := buildTestIndex(t, embedder, map[string]string{"a.txt": "content"})

	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, ix.Save(dir))

	// Corrupt the vector file. A fingerprint mismatch must surface
	// before the vectors are ever read, so the load still fails with
	// the mismatch error, not a corruption error.
	require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), []byte("garbage"), 0o644))

	_, err := Load(dir, embed.Identity{ID: "ollama/nomic-embed-text", Dimension: 768})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeFingerprintMismatch, derrors.GetCode(err))

	var typed *derrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Contains(t, typed.Suggestion, "rebuild")
}

func TestLoad_DimensionOnlyMismatch(t *testing.T) {
	embedder := embed.NewHashEmbedder(256, true)
	ix := buildTestIndex(t, embedder, map[string]string{"a.txt": "content"})

	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, ix.Save(dir))

	// Same scheme ID, different dimension: still a mismatch.
	_, err := Load(dir, embed.Identity{ID: "hash-v1+bigrams", Dimension: 128})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeFingerprintMismatch, derrors.GetCode(err))
}

func TestLoad_MissingIndex(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), embed.Identity{ID: "hash-v1", Dimension: 256})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeIndexNotFound, derrors.GetCode(err))
}

func TestLoad_CorruptMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte("{not json"), 0o644))

	_, err := Load(dir, embed.Identity{ID: "hash-v1", Dimension: 256})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeCorruptIndex, derrors.GetCode(err))
}

func TestLoad_ChunkCountDisagreement(t *testing.T) {
	embedder := embed.NewHashEmbedder(64, true)
	ix := buildTestIndex(t, embedder, map[string]string{
		"a.txt": "first",
		"b.txt": "second",
	})

	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, ix.Save(dir))

	// Replace the vector file with one holding a single vector.
	single := New(embedder.Identity())
	vec, err := embedder.Embed(context.Background(), "only one")
	require.NoError(t, err)
	require.NoError(t, single.Add(chunk.Chunk{ID: "x", Text: "only one"}, vec))
	other := filepath.Join(t.TempDir(), "other")
	require.NoError(t, single.Save(other))
	data, err := os.ReadFile(filepath.Join(other, VectorsFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), data, 0o644))

	_, err = Load(dir, embedder.Identity())
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeCorruptIndex, derrors.GetCode(err))
}

func TestSave_ReplacesPreviousSnapshot(t *testing.T) {
	embedder := embed.NewHashEmbedder(64, true)
	dir := filepath.Join(t.TempDir(), "index")

	first := buildTestIndex(t, embedder, map[string]string{"a.txt": "first build"})
	require.NoError(t, first.Save(dir))

	second := buildTestIndex(t, embedder, map[string]string{
		"a.txt": "second build",
		"b.txt": "new file",
	})
	require.NoError(t, second.Save(dir))

	loaded, err := Load(dir, embedder.Identity())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count())

	// No staging or backup directories are left behind.
	_, err = os.Stat(dir + ".staging")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir + ".old")
	assert.True(t, os.IsNotExist(err))
}

func TestReadMetadata(t *testing.T) {
	embedder := embed.NewHashEmbedder(256, true)
	ix := buildTestIndex(t, embedder, map[string]string{"a.txt": "content"})

	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, ix.Save(dir))

	meta, err := ReadMetadata(dir)
	require.NoError(t, err)
	assert.Equal(t, "hash-v1+bigrams", meta.EmbedderID)
	assert.Equal(t, 256, meta.Dimension)
	assert.Equal(t, 1, meta.ChunkCount)
	assert.False(t, meta.BuiltAt.IsZero())
}
