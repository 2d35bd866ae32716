// Package store persists chunk vectors in an HNSW graph alongside the
// chunk metadata needed to answer queries. An index snapshot is two
// co-located files: vectors.hnsw (the graph) and metadata.json (the
// embedder identity plus per-chunk records keyed by insertion ordinal).
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/devinsight/devrag/internal/chunk"
	"github.com/devinsight/devrag/internal/embed"
)

// HNSW tuning parameters, following coder/hnsw recommendations.
const (
	graphM        = 16
	graphEfSearch = 20
	graphMl       = 0.25
)

// Result is a single search hit.
type Result struct {
	Chunk chunk.Chunk `json:"chunk"`
	Score float32     `json:"score"`
}

// Metadata describes a built index. It is written next to the vector
// file and read back before the graph is touched, so an identity
// mismatch is detected without loading any vectors.
type Metadata struct {
	Version    int           `json:"version"`
	EmbedderID string        `json:"embedder_id"`
	Dimension  int           `json:"dimension"`
	ChunkCount int           `json:"chunk_count"`
	BuiltAt    time.Time     `json:"built_at"`
	Chunks     []chunk.Chunk `json:"chunks"`
}

// MetadataVersion is the current metadata.json schema version.
const MetadataVersion = 1

// Index is an in-memory vector index over chunks. Insertion order
// assigns each chunk a stable ordinal used as its graph key, so equal
// similarity scores break ties the same way on every rebuild.
type Index struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	chunks   []chunk.Chunk
	identity embed.Identity
	builtAt  time.Time
}

// New creates an empty index bound to the given embedder identity.
func New(identity embed.Identity) *Index {
	return &Index{
		graph:    newGraph(),
		identity: identity,
		builtAt:  time.Now().UTC(),
	}
}

func newGraph() *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = graphM
	graph.EfSearch = graphEfSearch
	graph.Ml = graphMl
	return graph
}

// Add appends a chunk and its vector. The chunk's ordinal is its
// position in insertion order.
func (ix *Index) Add(c chunk.Chunk, vector []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(vector) != ix.identity.Dimension {
		return fmt.Errorf("vector dimension %d does not match embedder dimension %d",
			len(vector), ix.identity.Dimension)
	}

	key := uint64(len(ix.chunks))
	vec := make([]float32, len(vector))
	copy(vec, vector)

	ix.graph.Add(hnsw.MakeNode(key, vec))
	ix.chunks = append(ix.chunks, c)
	return nil
}

// Search returns the k most similar chunks to the query vector, ordered
// by descending score with insertion ordinal breaking ties. An empty
// index or a zero query vector returns an empty slice, not an error.
// k larger than the chunk count returns everything.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(query) != ix.identity.Dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d",
			len(query), ix.identity.Dimension)
	}
	if k <= 0 || ix.graph.Len() == 0 {
		return []Result{}, nil
	}
	// A zero vector has no direction; cosine distance against it is
	// undefined and would surface as NaN scores.
	if isZeroVector(query) {
		return []Result{}, nil
	}
	if k > len(ix.chunks) {
		k = len(ix.chunks)
	}

	nodes := ix.graph.Search(query, k)

	type hit struct {
		ordinal uint64
		score   float32
	}
	hits := make([]hit, 0, len(nodes))
	for _, node := range nodes {
		dist := ix.graph.Distance(query, node.Value)
		// Cosine distance ranges 0..2; map to a 0..1 score.
		hits = append(hits, hit{ordinal: node.Key, score: 1.0 - dist/2.0})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].ordinal < hits[j].ordinal
	})

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{Chunk: ix.chunks[h.ordinal], Score: h.score})
	}
	return results, nil
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Identity returns the embedder identity the index was built with.
func (ix *Index) Identity() embed.Identity {
	return ix.identity
}

// Metadata returns the snapshot metadata for this index.
func (ix *Index) Metadata() Metadata {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	chunks := make([]chunk.Chunk, len(ix.chunks))
	copy(chunks, ix.chunks)

	return Metadata{
		Version:    MetadataVersion,
		EmbedderID: ix.identity.ID,
		Dimension:  ix.identity.Dimension,
		ChunkCount: len(ix.chunks),
		BuiltAt:    ix.builtAt,
		Chunks:     chunks,
	}
}
