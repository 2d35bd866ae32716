package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
		retry    bool
	}{
		{"config invalid", ErrCodeConfigInvalid, CategoryConfig, SeverityFatal, false},
		{"file unreadable", ErrCodeFileUnreadable, CategoryIO, SeverityWarning, false},
		{"encoder timeout", ErrCodeEncoderTimeout, CategoryEncoder, SeverityFatal, true},
		{"fingerprint mismatch", ErrCodeFingerprintMismatch, CategoryValidation, SeverityFatal, false},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retry, err.Retryable)
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying")
	err := Wrap(ErrCodeFileUnreadable, fmt.Errorf("read failed: %w", cause))

	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, cause))
}

func TestError_IsMatchesByCode(t *testing.T) {
	a := New(ErrCodeFingerprintMismatch, "first", nil)
	b := New(ErrCodeFingerprintMismatch, "second", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, New(ErrCodeConfigInvalid, "other", nil)))
}

func TestFingerprintMismatchError(t *testing.T) {
	err := FingerprintMismatchError("hash-v1+bigrams", 256, "ollama/nomic-embed-text", 768)

	assert.Equal(t, ErrCodeFingerprintMismatch, err.Code)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Message, "hash-v1+bigrams")
	assert.Contains(t, err.Message, "ollama/nomic-embed-text")
	assert.Contains(t, err.Suggestion, "rebuild")
	assert.Equal(t, "hash-v1+bigrams", err.Details["stored_embedder"])
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestHelpers_NonDomainError(t *testing.T) {
	plain := stderrors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.False(t, IsFatal(plain))
	assert.Equal(t, "", GetCode(plain))
	assert.Equal(t, Category(""), GetCategory(plain))
}
