// Package chunk splits raw text into bounded, deterministically-identified
// segments carrying source provenance.
//
// Chunk boundaries are a pure function of the input text and the configured
// bounds: no randomness, no dependence on build order. Boundaries prefer
// paragraph breaks, then line breaks, and only hard-cut as a last resort.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Splitter segments text into chunks of at most maxSize bytes, with
// overlap bytes repeated between consecutive chunks.
type Splitter struct {
	maxSize int
	overlap int
}

// NewSplitter creates a Splitter. maxSize must be positive; overlap is
// clamped to [0, maxSize).
func NewSplitter(maxSize, overlap int) *Splitter {
	if maxSize <= 0 {
		maxSize = 2048
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 4
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}
}

// Split segments text into ordered chunks for one source. Whitespace-only
// segments are dropped. Identical input always yields identical boundaries
// and identical chunk IDs.
func (s *Splitter) Split(sourcePath string, origin Origin, text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	position := 0
	start := 0

	for start < len(text) {
		end := s.cutPoint(text, start)

		segment := text[start:end]
		if strings.TrimSpace(segment) != "" {
			chunks = append(chunks, Chunk{
				ID:         ChunkID(sourcePath, position, segment),
				SourcePath: sourcePath,
				Text:       segment,
				Origin:     origin,
				Position:   position,
			})
			position++
		}

		if end >= len(text) {
			break
		}

		// Step back by the overlap, but always make forward progress.
		next := alignRune(text, end-s.overlap)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// cutPoint finds where the chunk starting at start should end, preferring
// paragraph then line boundaries in the trailing half of the window.
func (s *Splitter) cutPoint(text string, start int) int {
	end := start + s.maxSize
	if end >= len(text) {
		return len(text)
	}

	window := text[start:end]
	half := len(window) / 2

	if idx := strings.LastIndex(window, "\n\n"); idx >= half {
		return start + idx + 2
	}
	if idx := strings.LastIndex(window, "\n"); idx >= half {
		return start + idx + 1
	}

	// Hard cut; never split a UTF-8 sequence. When maxSize is smaller
	// than the rune at start, take the whole rune so the split always
	// advances.
	end = alignRune(text, end)
	if end <= start {
		_, size := utf8.DecodeRuneInString(text[start:])
		end = start + size
	}
	return end
}

// alignRune moves pos backwards to the nearest rune boundary.
func alignRune(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// ChunkID derives the stable chunk identifier from source path, ordinal
// position, and a content hash.
func ChunkID(sourcePath string, position int, text string) string {
	contentHash := sha256.Sum256([]byte(text))
	h := sha256.New()
	h.Write([]byte(sourcePath))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(position)))
	h.Write([]byte{0})
	h.Write(contentHash[:])
	return hex.EncodeToString(h.Sum(nil))[:16]
}
