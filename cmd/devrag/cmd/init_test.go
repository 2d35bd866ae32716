package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devinsight/devrag/internal/config"
)

func TestInitCmd_WritesTemplate(t *testing.T) {
	root := t.TempDir()

	out, err := runCommand(t, root, "init")
	require.NoError(t, err)
	assert.Contains(t, out, config.ConfigFileName)

	path := filepath.Join(root, config.ConfigFileName)
	require.FileExists(t, path)

	// The template must parse and resolve to the built-in defaults.
	cfg, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "hash", cfg.Embeddings.Backend)
	assert.Equal(t, config.DefaultHistoryDepth, cfg.Walker.HistoryDepth)
	assert.Equal(t, config.DefaultMaxChunkSize, cfg.Chunking.MaxChunkSize)
}

func TestInitCmd_RefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	_, err := runCommand(t, root, "init")
	require.Error(t, err)

	_, err = runCommand(t, root, "init", "--force")
	require.NoError(t, err)
}
