package walker

import (
	"path/filepath"
	"strings"

	"github.com/devinsight/devrag/internal/history"
)

// Origin tags where a piece of content came from.
type Origin string

const (
	// OriginFile marks content read from the working tree.
	OriginFile Origin = "file"
	// OriginCommit marks content read from recent commit history.
	OriginCommit Origin = "commit"
)

// Source is one indexable unit of repository content.
type Source struct {
	// Path is the file path relative to the root, or "<shorthash>:<path>"
	// for commit-derived content.
	Path string
	// Text is the raw content.
	Text string
	// Origin distinguishes working-tree files from commit history.
	Origin Origin
}

// Warning records a skipped item. Warnings are never fatal to a walk.
type Warning struct {
	Path string
	Err  error
}

// Result is one item streamed from a walk: either a source or a warning.
type Result struct {
	Source  *Source
	Warning *Warning
}

// Options configures a walk.
type Options struct {
	// RootDir is the repository root. Defaults to ".".
	RootDir string

	// HistoryDepth is the number of recent commits to inspect.
	// Zero disables history walking.
	HistoryDepth int

	// MaxFileSize is the byte threshold above which content is skipped.
	MaxFileSize int64

	// MinFileSize skips near-empty files.
	MinFileSize int64

	// IncludePatterns, when non-empty, restricts the walk to matching
	// paths. Exclusions still apply on top.
	IncludePatterns []string

	// ExcludePatterns are additional path patterns to skip.
	ExcludePatterns []string

	// History provides commit access. Nil disables history walking.
	History history.Accessor
}

// Default directories never walked.
var defaultExcludeDirs = map[string]bool{
	".git":         true,
	".devrag":      true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
}

// Sensitive file name fragments that are never indexed.
var sensitiveFragments = []string{
	".env", "credential", "secret", "password",
	"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519", ".netrc",
}

// Text-like extensions eligible for indexing.
var textExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true, ".rst": true,
	".go": true, ".py": true, ".js": true, ".jsx": true,
	".ts": true, ".tsx": true, ".rb": true, ".rs": true,
	".java": true, ".kt": true, ".c": true, ".h": true,
	".cc": true, ".cpp": true, ".hpp": true, ".cs": true,
	".sh": true, ".bash": true, ".sql": true, ".proto": true,
	".yaml": true, ".yml": true, ".json": true, ".toml": true,
	".ini": true, ".cfg": true, ".xml": true, ".html": true,
	".css": true, ".tf": true, ".graphql": true,
}

// Text-like files identified by exact name.
var textFilenames = map[string]bool{
	"Makefile": true, "Dockerfile": true, "LICENSE": true,
	"README": true, "CHANGELOG": true, "Gemfile": true,
	"go.mod": true, ".gitignore": true,
}

// IsTextPath reports whether a path looks like indexable text content.
func IsTextPath(path string) bool {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, frag := range sensitiveFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	if textFilenames[base] {
		return true
	}
	return textExtensions[strings.ToLower(filepath.Ext(base))]
}

// IsExcludedDir reports whether a directory name is excluded by default.
func IsExcludedDir(name string) bool {
	return defaultExcludeDirs[name]
}
