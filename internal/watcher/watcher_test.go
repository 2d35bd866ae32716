package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForTrigger(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Triggers():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcher_TriggersOnWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("one"), 0o644))

	w, err := New(root, 50*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("two"), 0o644))
	assert.True(t, waitForTrigger(t, w, 2*time.Second))
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	root := t.TempDir()

	w, err := New(root, 100*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// A burst of writes inside the window produces one trigger.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "burst.go"),
			[]byte("package main\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.True(t, waitForTrigger(t, w, 2*time.Second))

	// No second trigger follows once activity stops.
	select {
	case <-w.Triggers():
		t.Fatal("unexpected second trigger")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresNonTextFiles(t *testing.T) {
	root := t.TempDir()

	w, err := New(root, 50*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(root, "image.png"), []byte{0x89, 0x50}, 0o644))
	assert.False(t, waitForTrigger(t, w, 300*time.Millisecond))
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
