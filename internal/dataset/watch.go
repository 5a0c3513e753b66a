package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the CSV provider whenever its backing file is rewritten,
// bumping the version token so the next fetch invalidates cached
// materializations. onReload, when non-nil, runs on the watcher
// goroutine after each successful reload; callers use it to trigger a
// re-fetch cycle.
//
// The parent DIRECTORY is watched, not the file itself: workflows replace
// result files atomically (write temp, rename over), which drops an
// inode-level watch. Returns a stop function; the watcher also stops when
// ctx is cancelled.
func (c *CSVFile) Watch(ctx context.Context, onReload func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch dataset %s: %w", c.name, err)
	}

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch dataset %s: add %s: %w", c.name, dir, err)
	}

	target := filepath.Clean(c.path)

	go func() {
		defer watcher.Close()
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
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := c.Reload(); err != nil {
					slog.Warn("dataset reload failed",
						"dataset", c.name,
						"path", c.path,
						"error", err,
					)
					continue
				}
				slog.Info("dataset version bumped",
					"dataset", c.name,
					"version", c.Version(),
					"op", event.Op.String(),
				)
				if onReload != nil {
					onReload()
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("dataset watcher error",
					"dataset", c.name,
					"error", err,
				)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
