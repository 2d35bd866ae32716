package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	derrors "github.com/devinsight/devrag/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string
	// Model is the embedding model name.
	Model string
	// BatchSize is the maximum number of texts per request.
	BatchSize int
	// Timeout bounds each embedding request.
	Timeout time.Duration
	// SkipHealthCheck disables the startup availability probe (tests).
	SkipHealthCheck bool
	// Dimensions, when zero, is auto-detected from a probe embedding.
	Dimensions int
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
// Every request carries a context deadline; an unreachable or slow
// encoder surfaces a typed failure rather than hanging a build.
type OllamaEmbedder struct {
	client *http.Client
	config OllamaConfig
	dims   int

	mu     sync.RWMutex
	closed bool
}

// ollamaEmbedRequest is the /api/embed request payload.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the /api/embed response payload.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates an Ollama embedder and verifies the encoder
// is reachable. Failure to connect or to detect dimensions is an
// EncoderUnavailable error: fatal at build time, never a silent fallback.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	e := &OllamaEmbedder{
		client: &http.Client{},
		config: cfg,
		dims:   cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		dims, err := e.probeDimensions(probeCtx)
		if err != nil {
			return nil, derrors.EncoderUnavailableError(
				fmt.Sprintf("ollama encoder %q at %s is not available", cfg.Model, cfg.Host), err).
				WithSuggestion("start Ollama and pull the model, or use the hash backend (DEVRAG_EMBEDDER=hash)")
		}
		if e.dims == 0 {
			e.dims = dims
		}
	}

	if e.dims == 0 {
		return nil, derrors.ConfigError("ollama embedding dimensions unknown", nil)
	}

	return e, nil
}

// probeDimensions requests a single probe embedding to verify the encoder
// works and to learn the vector dimension.
func (e *OllamaEmbedder) probeDimensions(ctx context.Context) (int, error) {
	vecs, err := e.doEmbed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("empty probe embedding")
	}
	return len(vecs[0]), nil
}

// Embed generates the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dims), nil
	}

	vecs, err := e.embedWithTimeout(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts using the batch API.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

	// Empty inputs get zero vectors without an API round trip.
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

	for start := 0; start < len(pending); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		batchTexts := make([]string, len(batch))
		for i, it := range batch {
			batchTexts[i] = it.text
		}

		vecs, err := e.embedWithTimeout(ctx, batchTexts)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vecs))
		}
		for i, vec := range vecs {
			results[batch[i].idx] = vec
		}
	}

	return results, nil
}

// embedWithTimeout wraps doEmbed with the per-request deadline and maps
// failures to typed encoder errors.
func (e *OllamaEmbedder) embedWithTimeout(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	vecs, err := e.doEmbed(reqCtx, texts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, derrors.New(derrors.ErrCodeEncoderTimeout,
				fmt.Sprintf("ollama encoder timed out after %s", e.config.Timeout), err)
		}
		return nil, derrors.EncoderUnavailableError("ollama embedding request failed", err)
	}
	return vecs, nil
}

// doEmbed performs one /api/embed request.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for i, vec := range result.Embeddings {
		result.Embeddings[i] = normalizeVector(vec)
	}
	return result.Embeddings, nil
}

// Identity returns the embedder identity. The model name is part of the
// identity so switching models is detectable even when dimensions match.
func (e *OllamaEmbedder) Identity() Identity {
	return Identity{ID: "ollama/" + e.config.Model, Dimension: e.dims}
}

// Close releases resources.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}

// Verify interface implementation.
var _ Embedder = (*OllamaEmbedder)(nil)
