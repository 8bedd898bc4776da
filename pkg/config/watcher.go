package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a FileStore when its file changes on disk and reports
// effective changes to a callback.
type Watcher struct {
	store    *FileStore
	onReload func()
	logger   *slog.Logger
}

// NewWatcher creates a watcher for store. onReload runs on the watcher
// goroutine after each reload that changed the contents.
func NewWatcher(store *FileStore, onReload func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{store: store, onReload: onReload, logger: logger}
}

// Start begins watching. Watching stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of
	// writing it in place, and our own Save renames over it.
	dir := filepath.Dir(w.store.Path())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			changed, err := w.store.Reload()
			if err != nil {
				w.logger.Warn("config reload failed", "path", target, "error", err)
				continue
			}
			if changed && w.onReload != nil {
				w.logger.Info("config reloaded", "path", target)
				w.onReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}
