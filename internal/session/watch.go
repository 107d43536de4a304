package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce batches the bursts of write events a single save produces.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the textbook at path whenever the file is written or
// replaced, until ctx is done. It returns nil on cancellation. Reload
// failures are logged and the previous textbook stays loaded.
func (t *Tutor) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	t.logger.Info("Watching textbook", "path", abs)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			t.logger.Debug("Textbook changed", "path", abs, "op", event.Op.String())
			pending = time.After(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("Watcher error", "path", abs, "error", err)

		case <-pending:
			pending = nil
			if _, err := t.LoadFile(ctx, abs); err != nil {
				if !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
					t.logger.Warn("Failed to reload textbook", "path", abs, "error", err)
				}
				continue
			}
			t.logger.Info("Reloaded textbook", "path", abs)
		}
	}
}
