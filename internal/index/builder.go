// Package index orchestrates the two halves of the engine: the builder
// walks a repository, chunks its content, embeds every chunk, and
// publishes an index snapshot; the query service loads a snapshot and
// answers similarity queries against it.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/devinsight/devrag/internal/chunk"
	"github.com/devinsight/devrag/internal/config"
	"github.com/devinsight/devrag/internal/embed"
	derrors "github.com/devinsight/devrag/internal/errors"
	"github.com/devinsight/devrag/internal/history"
	"github.com/devinsight/devrag/internal/store"
	"github.com/devinsight/devrag/internal/telemetry"
	"github.com/devinsight/devrag/internal/walker"
)

// embedWorkers bounds concurrent embedding batches.
const embedWorkers = 4

// BuildSummary reports what a build produced.
type BuildSummary struct {
	SourceCount int           `json:"source_count"`
	ChunkCount  int           `json:"chunk_count"`
	EmbedderID  string        `json:"embedder_id"`
	Dimension   int           `json:"dimension"`
	IndexDir    string        `json:"index_dir"`
	Duration    time.Duration `json:"duration"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// Builder constructs index snapshots.
type Builder struct {
	cfg      *config.Config
	root     string
	embedder embed.Embedder
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewBuilder creates a builder for the repository at root.
func NewBuilder(cfg *config.Config, root string, embedder embed.Embedder, metrics *telemetry.Metrics) *Builder {
	return &Builder{
		cfg:      cfg,
		root:     root,
		embedder: embedder,
		metrics:  metrics,
		logger:   slog.Default().With(slog.String("component", "builder")),
	}
}

// Build walks the repository, embeds all chunks, and atomically
// publishes a new snapshot. Unreadable items are warnings; encoder and
// configuration failures abort the build before anything is written.
// Concurrent builds of the same index are serialized by a file lock.
func (b *Builder) Build(ctx context.Context) (*BuildSummary, error) {
	start := time.Now()
	indexDir := b.cfg.IndexDir(b.root)

	unlock, err := acquireBuildLock(indexDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sources, chunks, warnings, err := b.collect(ctx)
	if err != nil {
		return nil, err
	}
	b.logger.Info("collected repository content",
		slog.Int("sources", sources),
		slog.Int("chunks", len(chunks)),
		slog.Int("warnings", len(warnings)))

	vectors, err := b.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	ix := store.New(b.embedder.Identity())
	for i, c := range chunks {
		if err := ix.Add(c, vectors[i]); err != nil {
			return nil, derrors.New(derrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("index chunk %s: %v", c.ID, err), err)
		}
	}

	if err := ix.Save(indexDir); err != nil {
		return nil, err
	}

	duration := time.Since(start)
	b.metrics.RecordBuild(telemetry.BuildEvent{
		SourceCount:  sources,
		ChunkCount:   len(chunks),
		WarningCount: len(warnings),
		Duration:     duration,
		Timestamp:    time.Now(),
	})
	b.logger.Info("index published",
		slog.String("dir", indexDir),
		slog.String("embedder", b.embedder.Identity().ID),
		slog.Duration("duration", duration))

	return &BuildSummary{
		SourceCount: sources,
		ChunkCount:  len(chunks),
		EmbedderID:  b.embedder.Identity().ID,
		Dimension:   b.embedder.Identity().Dimension,
		IndexDir:    indexDir,
		Duration:    duration,
		Warnings:    warnings,
	}, nil
}

// acquireBuildLock takes the cross-process build lock for an index
// directory. The lock file lives beside the index so locks are per
// index, not global.
func acquireBuildLock(indexDir string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(indexDir), 0o755); err != nil {
		return nil, derrors.IOError("create index parent directory", err)
	}

	lock := flock.New(filepath.Join(filepath.Dir(indexDir), ".build.lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, derrors.IOError("acquire build lock", err)
	}
	if !acquired {
		return nil, derrors.New(derrors.ErrCodeBuildLocked,
			"another build is already running for this index", nil).
			WithSuggestion("wait for the running build to finish")
	}
	return func() { _ = lock.Unlock() }, nil
}

// collect walks the repository and chunks every source.
func (b *Builder) collect(ctx context.Context) (sources int, chunks []chunk.Chunk, warnings []string, err error) {
	var hist history.Accessor
	depth := b.cfg.Walker.HistoryDepth
	if depth > 0 {
		git := history.NewGit(b.root)
		if git.Available(ctx) {
			hist = git
		} else {
			b.logger.Debug("git not available, skipping history", slog.String("root", b.root))
		}
	}

	w := walker.New(walker.Options{
		RootDir:         b.root,
		HistoryDepth:    depth,
		MaxFileSize:     b.cfg.Walker.MaxFileSize,
		MinFileSize:     b.cfg.Walker.MinFileSize,
		IncludePatterns: b.cfg.Paths.Include,
		ExcludePatterns: b.cfg.Paths.Exclude,
		History:         hist,
	})

	results, err := w.Walk(ctx)
	if err != nil {
		return 0, nil, nil, err
	}

	splitter := chunk.NewSplitter(b.cfg.Chunking.MaxChunkSize, b.cfg.Chunking.Overlap)
	for r := range results {
		if r.Warning != nil {
			b.logger.Warn("skipped item",
				slog.String("path", r.Warning.Path),
				slog.String("error", r.Warning.Err.Error()))
			warnings = append(warnings, fmt.Sprintf("%s: %v", r.Warning.Path, r.Warning.Err))
			continue
		}
		sources++
		chunks = append(chunks,
			splitter.Split(r.Source.Path, chunk.Origin(r.Source.Origin), r.Source.Text)...)
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, nil, err
	}
	return sources, chunks, warnings, nil
}

// embedAll embeds every chunk in parallel batches. Results are written
// into per-batch slots of a preallocated slice, so output order always
// matches chunk order regardless of completion order.
func (b *Builder) embedAll(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	batchSize := b.cfg.Embeddings.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end

		g.Go(func() error {
			texts := make([]string, end-start)
			for i, c := range chunks[start:end] {
				texts[i] = c.Text
			}
			batch, err := b.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
