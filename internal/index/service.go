package index

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/devinsight/devrag/internal/embed"
	"github.com/devinsight/devrag/internal/store"
	"github.com/devinsight/devrag/internal/telemetry"
)

// DefaultTopK is the result count used when a query does not specify one.
const DefaultTopK = 8

// Description summarizes a loaded index for status output.
type Description struct {
	EmbedderID string    `json:"embedder_id"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	BuiltAt    time.Time `json:"built_at"`
}

// Service answers similarity queries against a loaded snapshot. The
// snapshot handle swaps atomically on Reload, so in-flight queries
// finish against the snapshot they started with.
type Service struct {
	mu       sync.RWMutex
	ix       *store.Index
	dir      string
	embedder embed.Embedder
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewService loads the snapshot at dir for querying with embedder.
// Loading fails fast if the snapshot was built with a different
// embedder identity.
func NewService(dir string, embedder embed.Embedder, metrics *telemetry.Metrics) (*Service, error) {
	ix, err := store.Load(dir, embedder.Identity())
	if err != nil {
		return nil, err
	}
	return &Service{
		ix:       ix,
		dir:      dir,
		embedder: embedder,
		metrics:  metrics,
		logger:   slog.Default().With(slog.String("component", "query")),
	}, nil
}

// Reload loads the current snapshot from disk and swaps it in. On
// failure the previous snapshot stays active.
func (s *Service) Reload() error {
	ix, err := store.Load(s.dir, s.embedder.Identity())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ix = ix
	s.mu.Unlock()

	s.logger.Info("snapshot reloaded", slog.Int("chunks", ix.Count()))
	return nil
}

// Query embeds text and returns the k most similar chunks. k <= 0
// selects DefaultTopK. A query matching nothing returns an empty
// slice, not an error.
func (s *Service) Query(ctx context.Context, text string, k int) ([]store.Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	ix := s.ix
	s.mu.RUnlock()

	results, err := ix.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuery(telemetry.QueryEvent{
		Query:       text,
		ResultCount: len(results),
		Latency:     time.Since(start),
		Timestamp:   time.Now(),
	})
	return results, nil
}

// Describe reports the active snapshot's identity and size.
func (s *Service) Describe() Description {
	s.mu.RLock()
	ix := s.ix
	s.mu.RUnlock()

	meta := ix.Metadata()
	return Description{
		EmbedderID: meta.EmbedderID,
		Dimension:  meta.Dimension,
		ChunkCount: meta.ChunkCount,
		BuiltAt:    meta.BuiltAt,
	}
}
