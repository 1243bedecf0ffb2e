package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce is how long the watcher waits after the last change.
const DefaultWatchDebounce = 200 * time.Millisecond

// PrefsWatcher calls onChange after the preference file is rewritten. The
// directory is watched because writers replace the file by rename.
type PrefsWatcher struct {
	watcher  *fsnotify.Watcher
	file     string
	debounce time.Duration
	logger   *zap.Logger
}

// NewPrefsWatcher creates a watcher for path.
func NewPrefsWatcher(path string, debounce time.Duration, logger *zap.Logger) (*PrefsWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	return &PrefsWatcher{
		watcher:  watcher,
		file:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Run delivers change notifications until ctx is cancelled.
func (w *PrefsWatcher) Run(ctx context.Context, onChange func()) error {
	defer w.watcher.Close()

	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if debounce != nil {
			debounce.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounce, func() {
				w.logger.Debug("preferences changed", zap.String("path", w.file))
				onChange()
			})
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("preferences watcher error", zap.Error(err))
		}
	}
}
