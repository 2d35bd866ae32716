// Package walker enumerates indexable repository content.
//
// Two producers feed the same downstream chunker: a filesystem walk over
// the working tree and a history walk over recent commits. Both are pure
// read operations, safe to re-run, and yield stable ordering so builds
// are reproducible: files lexicographic by path, commits newest-first.
package walker

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Walker streams repository content as (path, text, origin) triples.
type Walker struct {
	opts Options
}

// New creates a Walker with the given options.
func New(opts Options) *Walker {
	if opts.RootDir == "" {
		opts.RootDir = "."
	}
	return &Walker{opts: opts}
}

// Walk streams sources and warnings. The channel is closed when the walk
// completes or ctx is cancelled. Unreadable items produce warnings, never
// a failed walk.
func (w *Walker) Walk(ctx context.Context) (<-chan Result, error) {
	absRoot, err := filepath.Abs(w.opts.RootDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "walk", Path: absRoot, Err: os.ErrInvalid}
	}

	results := make(chan Result, 64)
	go func() {
		defer close(results)
		w.walkFiles(ctx, absRoot, results)
		w.walkHistory(ctx, results)
	}()
	return results, nil
}

// walkFiles traverses the working tree. filepath.WalkDir visits entries in
// lexical order, which keeps the output stable across runs.
func (w *Walker) walkFiles(ctx context.Context, absRoot string, results chan<- Result) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			emit(ctx, results, Result{Warning: &Warning{Path: path, Err: err}})
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if IsExcludedDir(d.Name()) || w.matchesExclude(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are never followed.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !IsTextPath(relPath) || !w.matchesInclude(relPath) || w.matchesExclude(relPath) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			emit(ctx, results, Result{Warning: &Warning{Path: relPath, Err: infoErr}})
			return nil
		}
		if info.Size() > w.opts.MaxFileSize || info.Size() < w.opts.MinFileSize {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Warn("skipping unreadable file",
				slog.String("path", relPath),
				slog.String("error", readErr.Error()))
			emit(ctx, results, Result{Warning: &Warning{Path: relPath, Err: readErr}})
			return nil
		}

		if isBinary(data) {
			return nil
		}

		emit(ctx, results, Result{Source: &Source{
			Path:   filepath.ToSlash(relPath),
			Text:   string(data),
			Origin: OriginFile,
		}})
		return nil
	})

	if err != nil && err != context.Canceled {
		emit(ctx, results, Result{Warning: &Warning{Path: absRoot, Err: err}})
	}
}

// walkHistory yields touched-file content for the last N commits,
// newest-first, tagged as commit-derived.
func (w *Walker) walkHistory(ctx context.Context, results chan<- Result) {
	if w.opts.History == nil || w.opts.HistoryDepth <= 0 {
		return
	}

	commits, err := w.opts.History.RecentCommits(ctx, w.opts.HistoryDepth)
	if err != nil {
		slog.Warn("skipping history walk", slog.String("error", err.Error()))
		emit(ctx, results, Result{Warning: &Warning{Path: "history", Err: err}})
		return
	}

	for _, commit := range commits {
		select {
		case <-ctx.Done():
			return
		default:
		}

		files, err := w.opts.History.ChangedFiles(ctx, commit.Hash)
		if err != nil {
			emit(ctx, results, Result{Warning: &Warning{Path: commit.ShortHash(), Err: err}})
			continue
		}

		for _, file := range files {
			if !IsTextPath(file) || !w.matchesInclude(file) || w.matchesExclude(file) {
				continue
			}

			content, err := w.opts.History.ContentAt(ctx, commit.Hash, file)
			if err != nil {
				// Deleted or renamed-away paths are expected churn;
				// anything else is an unreadable blob worth a warning.
				if errors.Is(err, fs.ErrNotExist) {
					slog.Debug("skipping commit content",
						slog.String("commit", commit.ShortHash()),
						slog.String("path", file),
						slog.String("error", err.Error()))
					continue
				}
				emit(ctx, results, Result{Warning: &Warning{
					Path: commit.ShortHash() + ":" + file,
					Err:  err,
				}})
				continue
			}
			if int64(len(content)) > w.opts.MaxFileSize || isBinary(content) {
				continue
			}

			emit(ctx, results, Result{Source: &Source{
				Path:   commit.ShortHash() + ":" + file,
				Text:   string(content),
				Origin: OriginCommit,
			}})
		}
	}
}

// matchesInclude reports whether a path passes the inclusion filter.
// An empty filter includes everything.
func (w *Walker) matchesInclude(relPath string) bool {
	if len(w.opts.IncludePatterns) == 0 {
		return true
	}
	return matchesAny(w.opts.IncludePatterns, relPath)
}

// matchesExclude checks user-supplied exclusion patterns against a path.
func (w *Walker) matchesExclude(relPath string) bool {
	return matchesAny(w.opts.ExcludePatterns, relPath)
}

// matchesAny matches a path against glob patterns by base name, by full
// relative path, and by "dir/**" prefix.
func matchesAny(patterns []string, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
		if strings.HasPrefix(relPath, strings.TrimSuffix(pattern, "/**")+"/") {
			return true
		}
	}
	return false
}

// isBinary checks for null bytes in the first 512 bytes.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 512 {
		probe = probe[:512]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

// emit sends a result unless the context is cancelled.
func emit(ctx context.Context, results chan<- Result, r Result) {
	select {
	case results <- r:
	case <-ctx.Done():
	}
}
