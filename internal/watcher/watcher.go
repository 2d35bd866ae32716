// Package watcher observes a repository for file changes and emits
// debounced rebuild triggers. Rapid bursts of events (editor saves,
// branch switches) coalesce into a single trigger.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devinsight/devrag/internal/walker"
)

// DefaultDebounce is the default quiet window before a trigger fires.
const DefaultDebounce = 2 * time.Second

// Watcher emits a trigger after file activity settles.
type Watcher struct {
	fw       *fsnotify.Watcher
	root     string
	debounce time.Duration
	triggers chan struct{}
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// New creates a watcher for the repository at root. debounce <= 0
// selects the default window.
func New(root string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fw:       fw,
		root:     root,
		debounce: debounce,
		triggers: make(chan struct{}, 1),
		logger:   slog.Default().With(slog.String("component", "watcher")),
	}, nil
}

// Start registers watches on every directory under the root and begins
// processing events until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Triggers returns the channel of debounced rebuild triggers. A trigger
// is a signal, not an event list: the consumer rebuilds from scratch.
func (w *Watcher) Triggers() <-chan struct{} {
	return w.triggers
}

// Stop ends watching. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.fw.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && walker.IsExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			w.logger.Warn("watch failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	// New directories need their own watch before activity inside them
	// is visible.
	if event.Op.Has(fsnotify.Create) && !walker.IsExcludedDir(name) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
		}
	}

	if !relevant(event) {
		return
	}
	w.scheduleTrigger()
}

// relevant reports whether an event should count toward a rebuild.
// Writes to non-text files and watch noise are ignored.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return walker.IsTextPath(event.Name)
}

func (w *Watcher) scheduleTrigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	select {
	case w.triggers <- struct{}{}:
	default:
		// A trigger is already pending; the rebuild it causes will pick
		// up these changes too.
	}
}
