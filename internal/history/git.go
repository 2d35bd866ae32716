// Package history provides read-only access to version-control history.
//
// It is the external capability boundary for commit content: the walker
// only needs recent commits, the files each touched, and file content at
// a commit. Everything goes through the git CLI so no repository state is
// ever mutated.
package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// Commit identifies one commit in recent history.
type Commit struct {
	Hash      string
	Subject   string
	Timestamp time.Time
}

// ShortHash returns the abbreviated commit hash used in chunk provenance.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 12 {
		return c.Hash[:12]
	}
	return c.Hash
}

// Accessor is the capability the walker consumes.
type Accessor interface {
	// RecentCommits returns up to n commits, newest first.
	RecentCommits(ctx context.Context, n int) ([]Commit, error)

	// ChangedFiles lists the paths touched by a commit.
	ChangedFiles(ctx context.Context, hash string) ([]string, error)

	// ContentAt reads a file's content as of a commit.
	ContentAt(ctx context.Context, hash, path string) ([]byte, error)
}

// Git implements Accessor using the git CLI.
type Git struct {
	repoPath string
}

// NewGit creates a Git accessor for the repository at repoPath.
func NewGit(repoPath string) *Git {
	return &Git{repoPath: repoPath}
}

// Available reports whether repoPath is inside a git work tree.
func (g *Git) Available(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "git", "-C", g.repoPath, "rev-parse", "--is-inside-work-tree")
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// RecentCommits returns up to n commits, newest first.
func (g *Git) RecentCommits(ctx context.Context, n int) ([]Commit, error) {
	if n <= 0 {
		return nil, nil
	}

	format := "%H|%aI|%s"
	cmd := exec.CommandContext(ctx, "git", "-C", g.repoPath, "log",
		fmt.Sprintf("--format=%s", format), fmt.Sprintf("-n%d", n))
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, parts[1])
		commits = append(commits, Commit{
			Hash:      parts[0],
			Subject:   parts[2],
			Timestamp: ts,
		})
	}
	return commits, nil
}

// ChangedFiles lists the paths touched by a commit.
func (g *Git) ChangedFiles(ctx context.Context, hash string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", g.repoPath, "diff-tree",
		"--no-commit-id", "--name-only", "-r", "--root", hash)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff-tree %s: %w", hash, err)
	}

	var files []string
	for _, f := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		f = strings.TrimSpace(f)
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// ContentAt reads a file's content as of a commit. A path absent from
// the commit (deleted or renamed away) reports fs.ErrNotExist so
// callers can tell expected churn from a real read failure.
func (g *Git) ContentAt(ctx context.Context, hash, path string) ([]byte, error) {
	ref := fmt.Sprintf("%s:%s", hash, path)
	cmd := exec.CommandContext(ctx, "git", "-C", g.repoPath, "show", ref)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && isMissingPath(string(exitErr.Stderr)) {
			return nil, fmt.Errorf("git show %s: %w", ref, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("git show %s: %w", ref, err)
	}
	return output, nil
}

// isMissingPath matches git show's complaints about a path that is not
// present in the named commit.
func isMissingPath(stderr string) bool {
	return strings.Contains(stderr, "does not exist") ||
		strings.Contains(stderr, "exists on disk, but not in")
}

// Verify interface implementation.
var _ Accessor = (*Git)(nil)
