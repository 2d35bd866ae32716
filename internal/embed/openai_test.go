package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/devinsight/devrag/internal/errors"
)

func TestNewOpenAIEmbedder_MissingKeyIsConfigError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeConfigInvalid, derrors.GetCode(err))
	assert.False(t, derrors.IsRetryable(err))
}

func TestNewOpenAIEmbedder_UnknownModel(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{Model: "text-embedding-99", APIKey: "sk-test"})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeConfigInvalid, derrors.GetCode(err))
}

func TestOpenAIEmbedder_Identity(t *testing.T) {
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, Identity{ID: "openai/text-embedding-3-small", Dimension: 1536}, e.Identity())

	large, err := NewOpenAIEmbedder(OpenAIConfig{Model: "text-embedding-3-large", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, 3072, large.Identity().Dimension)
}
