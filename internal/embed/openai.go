package embed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	derrors "github.com/devinsight/devrag/internal/errors"
)

// DefaultOpenAIModel is the default OpenAI embedding model.
const DefaultOpenAIModel = "text-embedding-3-small"

// openaiDimensions maps known models to their vector dimension.
var openaiDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	// Model is the embedding model name.
	Model string
	// Timeout bounds each embedding request.
	Timeout time.Duration
	// APIKey overrides the OPENAI_API_KEY environment variable.
	APIKey string
}

// OpenAIEmbedder generates embeddings through the OpenAI API.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	dims    int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewOpenAIEmbedder creates an OpenAI embedder. A missing API key is a
// configuration error reported before anything is written.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, derrors.ConfigError("OPENAI_API_KEY is not set", nil).
			WithSuggestion("export OPENAI_API_KEY or use another embedding backend")
	}

	dims, ok := openaiDimensions[cfg.Model]
	if !ok {
		return nil, derrors.ConfigError(
			fmt.Sprintf("unknown OpenAI embedding model %q", cfg.Model), nil)
	}

	return &OpenAIEmbedder{
		client:  openai.NewClient(key),
		model:   cfg.Model,
		dims:    dims,
		timeout: cfg.Timeout,
	}, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))

	// The API rejects empty input; give those zero vectors directly.
	type indexed struct {
		idx  int
		text string
	}
	var pending []indexed
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dims)
		} else {
			pending = append(pending, indexed{i, text})
		}
	}
	if len(pending) == 0 {
		return results, nil
	}

	input := make([]string, len(pending))
	for i, it := range pending {
		input[i] = it.text
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: input,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, derrors.New(derrors.ErrCodeEncoderTimeout,
				fmt.Sprintf("openai encoder timed out after %s", e.timeout), err)
		}
		return nil, derrors.EncoderUnavailableError("openai embedding request failed", err)
	}
	if len(resp.Data) != len(pending) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(pending), len(resp.Data))
	}

	for i, data := range resp.Data {
		results[pending[i].idx] = normalizeVector(data.Embedding)
	}
	return results, nil
}

// Identity returns the embedder identity, encoding the model name.
func (e *OpenAIEmbedder) Identity() Identity {
	return Identity{ID: "openai/" + e.model, Dimension: e.dims}
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Verify interface implementation.
var _ Embedder = (*OpenAIEmbedder)(nil)
