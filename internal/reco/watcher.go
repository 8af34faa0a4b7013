package reco

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/themycoder/guitarchord-sub001/internal/factors"
)

const defaultDebounce = 2 * time.Second

// Reloader is satisfied by *Engine.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watcher reloads the engine when the training job rewrites a factor
// snapshot. Bursts of events within the debounce window trigger one reload.
type Watcher struct {
	dir      string
	target   Reloader
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher watches dir for changes to the factor snapshot files. The
// directory itself is watched so files replaced by rename are seen.
func NewWatcher(dir string, target Reloader, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, target: target, debounce: debounce, watcher: fw}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isFactorFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			slog.Debug("factor snapshot changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
			pending = true
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.target.Reload(ctx); err != nil {
				slog.Error("snapshot reload failed", "dir", w.dir, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("factor watcher error", "dir", w.dir, "error", err)
		}
	}
}

func isFactorFile(path string) bool {
	switch filepath.Base(path) {
	case factors.ItemFactorsFile, factors.UserFactorsFile:
		return true
	}
	return false
}
