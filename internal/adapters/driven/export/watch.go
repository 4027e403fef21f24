package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/replica/internal/logger"
)

// Watch calls fn with the id of every document file created or written in
// the directory until ctx is done. Removals are not reported; deleting a
// document is done by writing its tombstone.
func (c *Client) Watch(ctx context.Context, fn func(id string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("export: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("export: watch %s: %w", c.dir, err)
	}
	logger.Debug("export: watching %s", c.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if id, ok := changedID(event); ok {
				fn(id)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("export: watcher error: %v", err)
		}
	}
}

// changedID maps a filesystem event to the id of the changed document.
func changedID(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if !isDocumentFile(name) {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}
