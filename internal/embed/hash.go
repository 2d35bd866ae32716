package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// HashEmbedder generates embeddings by hashing unigram tokens and,
// optionally, token bigrams into a fixed-size accumulator. It works
// without external dependencies (no network, no model download) and is
// fully deterministic: the same text always produces a bit-identical
// vector, across invocations and process restarts.
type HashEmbedder struct {
	dims    int
	bigrams bool

	mu     sync.RWMutex
	closed bool
}

// Accumulator weights.
const (
	unigramWeight = 1.0
	bigramWeight  = 0.5
)

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewHashEmbedder creates a hash embedder. dims <= 0 selects the default.
func NewHashEmbedder(dims int, bigrams bool) *HashEmbedder {
	if dims <= 0 {
		dims = HashDimensions
	}
	return &HashEmbedder{dims: dims, bigrams: bigrams}
}

// Embed generates the embedding for a single text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}

	vector := make([]float32, e.dims)
	tokens := tokenize(trimmed)

	for _, token := range tokens {
		vector[hashToIndex(token, e.dims)] += unigramWeight
	}

	if e.bigrams {
		for i := 0; i+1 < len(tokens); i++ {
			pair := tokens[i] + "\x1f" + tokens[i+1]
			vector[hashToIndex(pair, e.dims)] += bigramWeight
		}
	}

	return normalizeVector(vector), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Identity returns the embedder identity. The bigram flag is part of the
// identity: toggling it changes the vector space.
func (e *HashEmbedder) Identity() Identity {
	id := "hash-v1"
	if e.bigrams {
		id += "+bigrams"
	}
	return Identity{ID: id, Dimension: e.dims}
}

// Bigrams reports whether bigram hashing is enabled.
func (e *HashEmbedder) Bigrams() bool {
	return e.bigrams
}

// Close releases resources.
func (e *HashEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// tokenize splits text into lowercase tokens, splitting camelCase and
// snake_case identifiers so code terms hash consistently.
func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range splitCodeToken(word) {
			if lower := strings.ToLower(t); lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// splitCodeToken splits camelCase and snake_case identifiers.
func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase identifiers, keeping acronyms together.
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// hashToIndex uses FNV-64a to map a string to an accumulator index.
func hashToIndex(s string, size int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// Verify interface implementation.
var _ Embedder = (*HashEmbedder)(nil)
