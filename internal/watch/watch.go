// Package watch triggers re-ingestion when a CSV data file or its
// metadata sidecar changes on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce bounds how long the watcher waits for writes on a path to
// settle before invoking the callback, so a multi-step file write
// (truncate, then rewrite) triggers one re-ingest instead of several.
// Overridable in tests.
var debounce = 500 * time.Millisecond

// Watcher watches a fixed set of paths and invokes onChange (with the
// changed path) once each burst of writes to it settles.
type Watcher struct {
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts watching paths. Editors and importers commonly replace a
// file via rename rather than write-in-place, so the containing
// directories are watched rather than the files themselves.
func New(paths []string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	target := make(map[string]bool, len(paths))
	watchedDirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		target[abs] = true
		dir := filepath.Dir(abs)
		if !watchedDirs[dir] {
			if err := fsw.Add(dir); err != nil {
				fsw.Close()
				return nil, err
			}
			watchedDirs[dir] = true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{fsw: fsw, cancel: cancel, done: make(chan struct{})}
	go w.loop(ctx, target, onChange)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, target map[string]bool, onChange func(path string)) {
	defer close(w.done)
	timers := make(map[string]*time.Timer)
	for {
		select {
		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !target[abs] {
				continue
			}
			if t, exists := timers[abs]; exists {
				t.Stop()
			}
			path := abs
			timers[path] = time.AfterFunc(debounce, func() { onChange(path) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watch: fsnotify error", "err", err)
		}
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	<-w.done
	return err
}
