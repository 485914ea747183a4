package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWatcher_ReloadsOnReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.snap")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	reloaded := make(chan struct{}, 4)
	w, err := newSnapshotWatcher(path, func(context.Context) error {
		reloaded <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	tmp := filepath.Join(dir, "index.snap.tmp-1")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot was not reloaded")
	}

	// Events of one write are debounced into a single reload.
	select {
	case <-reloaded:
		t.Fatal("unexpected second reload")
	case <-time.After(2 * snapshotDebounce):
	}
}

func TestSnapshotWatcher_MissingDirectory(t *testing.T) {
	_, err := newSnapshotWatcher(filepath.Join(t.TempDir(), "missing", "index.snap"), nil)
	assert.Error(t, err)
}

func TestSnapshotWatcher_Relevant(t *testing.T) {
	w := &snapshotWatcher{path: "/data/index.snap"}

	assert.True(t, w.relevant(fsnotify.Event{Name: "/data/index.snap", Op: fsnotify.Create}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "/data/./index.snap", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/data/index.snap", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/data/index.snap.tmp-1", Op: fsnotify.Create}))
}
