package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devinsight/devrag/internal/embed"
	derrors "github.com/devinsight/devrag/internal/errors"
)

// Snapshot file names inside an index directory.
const (
	VectorsFile  = "vectors.hnsw"
	MetadataFile = "metadata.json"
)

// Save writes the index to dir atomically. The snapshot is built in a
// sibling staging directory and swapped in with a rename, so a reader
// always sees either the previous complete snapshot or the new one,
// never a vector file paired with stale metadata.
func (ix *Index) Save(dir string) error {
	staging := dir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return derrors.IOError("clear staging directory", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return derrors.IOError("create staging directory", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := ix.writeVectors(filepath.Join(staging, VectorsFile)); err != nil {
		return err
	}
	if err := writeMetadata(filepath.Join(staging, MetadataFile), ix.Metadata()); err != nil {
		return err
	}

	return swapDirs(staging, dir)
}

func (ix *Index) writeVectors(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		return derrors.IOError("create vector file", err)
	}
	if err := ix.graph.Export(file); err != nil {
		_ = file.Close()
		return derrors.IOError("export vector graph", err)
	}
	if err := file.Close(); err != nil {
		return derrors.IOError("close vector file", err)
	}
	return nil
}

func writeMetadata(path string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return derrors.IOError("encode index metadata", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return derrors.IOError("write index metadata", err)
	}
	return nil
}

// swapDirs replaces dir with staging. The previous snapshot is moved
// aside before the rename and removed after, so a crash leaves one
// complete snapshot on disk.
func swapDirs(staging, dir string) error {
	old := dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return derrors.IOError("clear previous snapshot", err)
	}
	if err := os.Rename(dir, old); err != nil && !os.IsNotExist(err) {
		return derrors.IOError("move previous snapshot aside", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		// Try to restore the previous snapshot.
		_ = os.Rename(old, dir)
		return derrors.IOError("publish index snapshot", err)
	}
	_ = os.RemoveAll(old)
	return nil
}

// ReadMetadata reads only metadata.json from an index directory. It is
// how callers learn a snapshot's identity without paying the cost of
// loading vectors.
func ReadMetadata(dir string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, derrors.New(derrors.ErrCodeIndexNotFound,
				fmt.Sprintf("no index found at %s", dir), err).
				WithSuggestion("run `devrag index` to build one")
		}
		return Metadata{}, derrors.IOError("read index metadata", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, derrors.New(derrors.ErrCodeCorruptIndex,
			"index metadata is not valid JSON", err).
			WithSuggestion("rebuild the index with `devrag index`")
	}
	if meta.ChunkCount != len(meta.Chunks) {
		return Metadata{}, derrors.New(derrors.ErrCodeCorruptIndex,
			fmt.Sprintf("metadata declares %d chunks but records %d", meta.ChunkCount, len(meta.Chunks)), nil).
			WithSuggestion("rebuild the index with `devrag index`")
	}
	return meta, nil
}

// Load reads a snapshot from dir for querying with the given embedder.
// The metadata is checked first: if the stored identity does not match
// current, Load fails with a fingerprint mismatch before any vector is
// read. Similarity against vectors from a different embedder is never
// computed.
func Load(dir string, current embed.Identity) (*Index, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}

	stored := embed.Identity{ID: meta.EmbedderID, Dimension: meta.Dimension}
	if !stored.Equal(current) {
		return nil, derrors.FingerprintMismatchError(stored.ID, stored.Dimension, current.ID, current.Dimension)
	}

	return loadWithMetadata(dir, meta)
}

// LoadStored reads a snapshot using the identity recorded in its own
// metadata. Used by read paths that report on an index rather than
// query it.
func LoadStored(dir string) (*Index, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	return loadWithMetadata(dir, meta)
}

func loadWithMetadata(dir string, meta Metadata) (*Index, error) {
	file, err := os.Open(filepath.Join(dir, VectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, derrors.New(derrors.ErrCodeCorruptIndex,
				"index metadata exists but vector file is missing", err).
				WithSuggestion("rebuild the index with `devrag index`")
		}
		return nil, derrors.IOError("open vector file", err)
	}
	defer func() { _ = file.Close() }()

	graph := newGraph()
	// coder/hnsw Import requires an io.ByteReader.
	if err := graph.Import(bufio.NewReader(file)); err != nil {
		return nil, derrors.New(derrors.ErrCodeCorruptIndex,
			"vector file failed to import", err).
			WithSuggestion("rebuild the index with `devrag index`")
	}
	if graph.Len() != meta.ChunkCount {
		return nil, derrors.New(derrors.ErrCodeCorruptIndex,
			fmt.Sprintf("vector file holds %d vectors but metadata records %d chunks", graph.Len(), meta.ChunkCount), nil).
			WithSuggestion("rebuild the index with `devrag index`")
	}

	return &Index{
		graph:    graph,
		chunks:   meta.Chunks,
		identity: embed.Identity{ID: meta.EmbedderID, Dimension: meta.Dimension},
		builtAt:  meta.BuiltAt,
	}, nil
}
