package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// snapshotDebounce groups the events of one snapshot write into a single reload.
const snapshotDebounce = 250 * time.Millisecond

// snapshotWatcher reloads the vector index when its snapshot file is replaced.
// The parent directory is watched because snapshots are written with a rename.
type snapshotWatcher struct {
	path    string
	reload  func(ctx context.Context) error
	watcher *fsnotify.Watcher
}

func newSnapshotWatcher(path string, reload func(ctx context.Context) error) (*snapshotWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &snapshotWatcher{path: filepath.Clean(path), reload: reload, watcher: w}, nil
}

// Run handles events until ctx is cancelled, then closes the watcher.
func (s *snapshotWatcher) Run(ctx context.Context) {
	defer s.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(snapshotDebounce)
			} else {
				timer.Reset(snapshotDebounce)
			}
			fire = timer.C

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("snapshot watcher: %v", err)

		case <-fire:
			fire = nil
			if err := s.reload(ctx); err != nil {
				logger.Warn("Reload index snapshot: %v", err)
				continue
			}
			logger.Info("Reloaded index snapshot %s", s.path)
		}
	}
}

func (s *snapshotWatcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != s.path {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
