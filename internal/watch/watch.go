// Package watch rebuilds a site whenever its source tree changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"revsite/internal/fs"
	"revsite/internal/site"
)

// DefaultDebounce is how long the watcher waits after the last change before
// rebuilding.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc performs one full rebuild. Its error is logged; the watcher
// keeps running.
type RebuildFunc func(ctx context.Context) error

// Watcher observes the source directories below root.
type Watcher struct {
	root     string
	logger   site.Logger
	debounce time.Duration
	rebuild  RebuildFunc
}

// New creates a watcher for the site at root. A debounce of 0 uses
// DefaultDebounce.
func New(root string, logger site.Logger, debounce time.Duration, rebuild RebuildFunc) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		logger:   logger,
		debounce: debounce,
		rebuild:  rebuild,
	}
}

// Run watches until ctx is cancelled. Changes are coalesced and rebuilds
// run one at a time; events arriving during a rebuild schedule another one.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()

	// The root is watched so that source directories created later are
	// picked up.
	if err := watcher.Add(w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	for _, sub := range fs.Subdirs {
		dir := filepath.Join(w.root, sub)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			w.addDirsRecursive(watcher, dir)
		}
	}

	rebuildReq, trigger, stop := newDebouncer(w.debounce)
	defer stop()

	w.logger.Info("watching for changes", "root", w.root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-rebuildReq:
			w.logger.Info("change detected; rebuilding")
			if err := w.rebuild(ctx); err != nil {
				w.logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if !w.relevant(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(watcher, ev.Name)
		}
	}
	w.logger.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
	trigger()
}

// relevant reports whether a change to p can affect the next revision.
func (w *Watcher) relevant(p string) bool {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	top, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if !slices.Contains(fs.Subdirs, top) {
		return false
	}
	return !shouldIgnoreEvent(p)
}

func (w *Watcher) addDirsRecursive(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				w.logger.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// newDebouncer returns a channel that receives once per burst of trigger
// calls, after d has passed without another call.
func newDebouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}

	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}

	return rebuildReq, trigger, stop
}

// shouldIgnoreEvent returns true for editor and OS artifacts.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}
