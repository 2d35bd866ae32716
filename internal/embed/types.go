// Package embed converts text to fixed-dimension vectors.
//
// Two interchangeable strategies satisfy the Embedder interface: a
// zero-dependency deterministic hash embedder, and semantic encoders that
// delegate to an external model (Ollama or OpenAI). Which one runs is an
// explicit configuration decision made once, at build or query time.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout bounds every semantic encoder request. An encoder
	// that does not answer in time surfaces a typed failure instead of
	// hanging the build.
	DefaultTimeout = 60 * time.Second
)

// Hash embedder constants.
const (
	// HashDimensions is the default accumulator size for the hash embedder.
	HashDimensions = 256
)

// Identity pins down which embedding scheme produced a vector. Every
// vector stored in an index and every query vector compared against it
// must share the same Identity.
type Identity struct {
	// ID names the scheme, including the model for semantic encoders
	// (e.g. "hash-v1+bigrams", "ollama/nomic-embed-text").
	ID string `json:"embedder_id"`
	// Dimension is the vector length.
	Dimension int `json:"dimension"`
}

// Equal reports whether two identities describe the same embedding space.
func (id Identity) Equal(other Identity) bool {
	return id.ID == other.ID && id.Dimension == other.Dimension
}

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Identity returns the embedder's identity fingerprint.
	Identity() Identity

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
