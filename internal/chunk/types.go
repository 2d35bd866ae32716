package chunk

// Origin tags the provenance of a chunk's source.
type Origin string

const (
	// OriginFile marks chunks derived from working-tree files.
	OriginFile Origin = "file"
	// OriginCommit marks chunks derived from recent commit content.
	OriginCommit Origin = "commit"
)

// Chunk is a bounded, provenance-tagged unit of indexed text.
//
// Identity is stable: the same (source path, position, text) always
// produces the same ID, across rebuilds and process restarts.
type Chunk struct {
	// ID is hex(SHA-256(source_path, position, content hash))[:16].
	ID string `json:"chunk_id"`
	// SourcePath is the file path or "<shorthash>:<path>" commit identifier.
	SourcePath string `json:"source_path"`
	// Text is the chunk content.
	Text string `json:"text"`
	// Origin distinguishes file chunks from commit chunks.
	Origin Origin `json:"origin_kind"`
	// Position is the chunk's ordinal within its source, 0-based.
	Position int `json:"position"`
}
