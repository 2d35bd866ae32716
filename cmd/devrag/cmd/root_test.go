package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devinsight/devrag/internal/index"
	"github.com/devinsight/devrag/internal/store"
)

// runCommand executes the CLI against the given repository root.
func runCommand(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"-C", root, "--no-color"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func writeRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "math.py"),
		[]byte("def add(a, b):\n    return a + b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"),
		[]byte("# Sample\n\nA tiny repository for command tests.\n"), 0o644))
	return root
}

func TestRootCmd_Help(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "index")
	assert.Contains(t, out, "query")
	assert.Contains(t, out, "info")
	assert.Contains(t, out, "watch")
}

func TestIndexThenQuery(t *testing.T) {
	root := writeRepo(t)

	out, err := runCommand(t, root, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Index built")

	// The snapshot landed in the default location.
	assert.FileExists(t, filepath.Join(root, ".devrag", "index", store.MetadataFile))
	assert.FileExists(t, filepath.Join(root, ".devrag", "index", store.VectorsFile))

	out, err = runCommand(t, root, "query", "add", "two", "numbers")
	require.NoError(t, err)
	assert.Contains(t, out, "math.py")
}

func TestQueryCmd_JSONFormat(t *testing.T) {
	root := writeRepo(t)

	_, err := runCommand(t, root, "index")
	require.NoError(t, err)

	out, err := runCommand(t, root, "query", "sample repository", "--format", "json")
	require.NoError(t, err)

	var results []store.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.NotEmpty(t, results)
}

func TestQueryCmd_WithoutIndex(t *testing.T) {
	root := t.TempDir()

	_, err := runCommand(t, root, "query", "anything")
	require.Error(t, err)
}

func TestInfoCmd(t *testing.T) {
	root := writeRepo(t)

	_, err := runCommand(t, root, "index")
	require.NoError(t, err)

	out, err := runCommand(t, root, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "hash-v1+bigrams")

	out, err = runCommand(t, root, "info", "--json")
	require.NoError(t, err)

	var desc index.Description
	require.NoError(t, json.Unmarshal([]byte(out), &desc))
	assert.Greater(t, desc.ChunkCount, 0)
	assert.Equal(t, 256, desc.Dimension)
}

func TestInfoCmd_WithoutIndex(t *testing.T) {
	_, err := runCommand(t, t.TempDir(), "info")
	require.Error(t, err)
}
