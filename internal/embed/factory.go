package embed

import (
	"context"
	"fmt"

	"github.com/devinsight/devrag/internal/config"
	derrors "github.com/devinsight/devrag/internal/errors"
)

// ProviderType tags an embedding backend. Selection is closed and
// explicit, resolved once from configuration, never inferred from data.
type ProviderType string

const (
	// ProviderHash is the deterministic zero-dependency hash embedder.
	ProviderHash ProviderType = "hash"
	// ProviderOllama delegates to a local Ollama encoder.
	ProviderOllama ProviderType = "ollama"
	// ProviderOpenAI delegates to the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"
)

// New creates the embedder selected by cfg, wrapped with an LRU cache.
// An unknown backend is a fatal configuration error; there is no silent
// fallback between providers.
func New(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	inner, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, DefaultEmbeddingCacheSize), nil
}

// newProvider constructs the raw (uncached) provider.
func newProvider(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	switch ProviderType(cfg.Backend) {
	case ProviderHash:
		return NewHashEmbedder(cfg.Dimensions, cfg.BigramsEnabled()), nil

	case ProviderOllama:
		return NewOllamaEmbedder(ctx, OllamaConfig{
			Host:      cfg.OllamaHost,
			Model:     cfg.Model,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout.Std(),
		})

	case ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			Model:   cfg.Model,
			Timeout: cfg.Timeout.Std(),
		})

	default:
		return nil, derrors.New(derrors.ErrCodeUnknownBackend,
			fmt.Sprintf("unknown embedding backend %q", cfg.Backend), nil).
			WithSuggestion(`set embeddings.backend to one of "hash", "ollama", "openai"`)
	}
}
