package knowledge

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchedOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch invalidates the cache whenever a document in the active directory is
// created, written, removed or renamed, so changes show up before the TTL
// expires. It blocks until ctx is done. When no directory exists it returns
// immediately.
func (c *Cache) Watch(ctx context.Context) error {
	dir := c.Dir()
	if dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	c.logger.Info("watching knowledge directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&watchedOps == 0 {
				continue
			}
			c.logger.Debug("knowledge document changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()),
			)
			c.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("knowledge watcher error", zap.Error(err))
		}
	}
}
