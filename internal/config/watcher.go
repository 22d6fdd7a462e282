package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands the
// validated result to a callback. Invalid edits are logged and skipped;
// the previous config stays in effect.
type Watcher struct {
	path     string
	onReload func(*Config)
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the given config path.
func NewWatcher(path string, logger *slog.Logger, onReload func(*Config)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, onReload: onReload, logger: logger}
}

// Run watches until the context is cancelled. The parent directory is
// watched rather than the file itself, because editors typically rename
// a temp file over the original, which drops a file-level watch.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Info("watching config file", "path", w.path)

	// Debounce: editors fire bursts of events per save.
	var pending *time.Timer
	const debounce = 250 * time.Millisecond

	reload := func() {
		cfg, err := LoadFromPath(w.path)
		if err != nil {
			w.logger.Warn("config reload failed, keeping previous config", "error", err)
			return
		}
		w.logger.Info("config reloaded", "path", w.path)
		w.onReload(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				pending.Stop()
			}
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, reload)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}
