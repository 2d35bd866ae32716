package history

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repository with two commits and returns its path.
func initTestRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		base := []string{"-C", dir,
			"-c", "user.name=test", "-c", "user.email=test@example.com"}
		cmd := exec.Command("git", append(base, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# demo\n"), 0o644))
	run("add", "readme.md")
	run("commit", "-q", "-m", "add readme")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	run("add", "main.go")
	run("commit", "-q", "-m", "add main")

	return dir
}

func TestGit_RecentCommits(t *testing.T) {
	dir := initTestRepo(t)
	g := NewGit(dir)
	ctx := context.Background()

	require.True(t, g.Available(ctx))

	commits, err := g.RecentCommits(ctx, 10)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	// Newest first.
	assert.Equal(t, "add main", commits[0].Subject)
	assert.Equal(t, "add readme", commits[1].Subject)
	assert.Len(t, commits[0].Hash, 40)
	assert.False(t, commits[0].Timestamp.IsZero())
}

func TestGit_RecentCommits_DepthLimit(t *testing.T) {
	dir := initTestRepo(t)
	g := NewGit(dir)

	commits, err := g.RecentCommits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "add main", commits[0].Subject)

	commits, err = g.RecentCommits(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestGit_ChangedFilesAndContentAt(t *testing.T) {
	dir := initTestRepo(t)
	g := NewGit(dir)
	ctx := context.Background()

	commits, err := g.RecentCommits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, commits, 1)

	files, err := g.ChangedFiles(ctx, commits[0].Hash)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, files)

	content, err := g.ContentAt(ctx, commits[0].Hash, "main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(content))
}

func TestGit_ContentAt_MissingPath(t *testing.T) {
	dir := initTestRepo(t)
	g := NewGit(dir)
	ctx := context.Background()

	commits, err := g.RecentCommits(ctx, 1)
	require.NoError(t, err)

	_, err = g.ContentAt(ctx, commits[0].Hash, "nope.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGit_Available_NonRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	g := NewGit(t.TempDir())
	assert.False(t, g.Available(context.Background()))
}

func TestCommit_ShortHash(t *testing.T) {
	c := Commit{Hash: "0123456789abcdef0123456789abcdef01234567"}
	assert.Equal(t, "0123456789ab", c.ShortHash())

	short := Commit{Hash: "abc"}
	assert.Equal(t, "abc", short.ShortHash())
}
