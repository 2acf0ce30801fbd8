// Package watcher reports filesystem changes under triaged roots so the
// daemon can drop stale triage results.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/reclaim/pkg/daemon/broadcaster"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
)

// Watcher watches directory trees recursively with fsnotify.
type Watcher struct {
	watcher     *fsnotify.Watcher
	roots       map[string]bool
	paths       map[string]bool
	mu          sync.RWMutex
	closed      bool
	broadcaster *broadcaster.Broadcaster

	// skip reports directories that are never watched.
	skip func(path string) bool
}

// New creates a new Watcher.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: fsw,
		roots:   make(map[string]bool),
		paths:   make(map[string]bool),
	}, nil
}

// SetBroadcaster sets the broadcaster that receives every change.
func (w *Watcher) SetBroadcaster(b *broadcaster.Broadcaster) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.broadcaster = b
}

// SetSkip sets a predicate for directories that must not be watched,
// such as the quarantine directory.
func (w *Watcher) SetSkip(skip func(path string) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skip = skip
}

// Watch starts watching root and every directory beneath it.
// Symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	w.mu.Lock()
	if w.roots[absRoot] {
		w.mu.Unlock()
		return nil
	}
	w.roots[absRoot] = true
	w.mu.Unlock()

	return w.addTree(absRoot)
}

// addTree watches dir and its subdirectories, skipping unreadable ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			return nil //nolint:nilerr // unreadable subtrees are not watched
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipped(path) {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

func (w *Watcher) skipped(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.skip != nil && w.skip(path)
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("daemon").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Unwatch stops watching root and all its subdirectories.
func (w *Watcher) Unwatch(root string) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	delete(w.roots, absRoot)
	w.removeLocked(absRoot)
}

// Roots returns the watched roots, sorted.
func (w *Watcher) Roots() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	roots := make([]string, 0, len(w.roots))
	for r := range w.roots {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// Run starts the event loop. It blocks until the context is cancelled.
// onChange is called for each event after watches are updated.
func (w *Watcher) Run(ctx context.Context, onChange func(path string, op fsnotify.Op)) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get("daemon").Error("watcher error", "error", err)
		}
	}
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event, onChange func(path string, op fsnotify.Op)) {
	var kind broadcaster.EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = broadcaster.EventCreated
		w.handleCreate(event.Name)
	case event.Op&fsnotify.Write != 0, event.Op&fsnotify.Chmod != 0:
		kind = broadcaster.EventModified
	case event.Op&fsnotify.Remove != 0:
		kind = broadcaster.EventDeleted
		w.handleRemove(event.Name)
	case event.Op&fsnotify.Rename != 0:
		// The new name arrives as a separate create.
		kind = broadcaster.EventRenamed
		w.handleRemove(event.Name)
	default:
		return
	}

	w.mu.RLock()
	b := w.broadcaster
	w.mu.RUnlock()
	if b != nil {
		b.Notify(event.Name, kind)
	}

	if onChange != nil {
		onChange(event.Name, event.Op)
	}
}

// handleCreate starts watching newly created directories.
func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}
	_ = w.addTree(path)
}

// handleRemove drops watches for a removed directory and its children.
func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeLocked(path)
}

func (w *Watcher) removeLocked(path string) {
	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	w.roots = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
