package index

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch marks the index stale whenever the directory changes. It returns
// once the watcher is installed; watching stops when ctx is done.
func (ix *Index) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(ix.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", ix.root, err)
	}

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
				if event.Op == fsnotify.Chmod {
					continue
				}
				ix.logger.Debug("directory changed", zap.String("event", event.String()))
				ix.MarkStale()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				ix.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
