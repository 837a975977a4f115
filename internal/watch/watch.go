// Package watch re-runs a handler when watched diagram files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before its handler runs.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called with the path of a file that changed.
type Handler func(ctx context.Context, path string) error

// Watcher watches a fixed set of files. Parent directories are watched
// rather than the files themselves, so editors that save by renaming a
// temporary file over the original are still seen.
type Watcher struct {
	files    map[string]bool // absolute paths
	debounce time.Duration
	handler  Handler
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New creates a Watcher for paths. A debounce of zero uses DefaultDebounce.
func New(paths []string, debounce time.Duration, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no files given")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		handler:  handler,
		logger:   logger,
		fsw:      fsw,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run handles changes until ctx is done, then closes the watcher. Handler
// errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	tick := max(w.debounce/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if !w.files[path] {
				continue
			}
			w.logger.Debug("diagram changed", "path", path, "op", ev.Op.String())
			pending[path] = time.Now()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "err", err)

		case now := <-ticker.C:
			for path, at := range pending {
				if now.Sub(at) < w.debounce {
					continue
				}
				delete(pending, path)
				if err := w.handler(ctx, path); err != nil {
					w.logger.Error("re-sync failed", "path", path, "err", err)
				}
			}
		}
	}
}
