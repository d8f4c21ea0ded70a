package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/iD01tStore/MusicForge/internal/model"
)

// DefaultSettle is how long a new file must go without writes before it is
// queued by Watch.
const DefaultSettle = time.Second

// Watch queues audio files that appear in dir until ctx is done.
//
// A file is queued once it has seen no create or write events for settle
// (DefaultSettle when zero), so files still being copied are not picked up
// early. Files for which skip reports true are never queued; skip is
// checked once the file has settled. onAdd, if non-nil, is called with each
// newly queued item from the watching goroutine. Both callbacks may be nil.
func (q *Queue) Watch(ctx context.Context, dir string, settle time.Duration, skip func(path string) bool, onAdd func(model.QueueItem)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	q.logger.Info("watching folder", "dir", dir)

	tick := time.NewTicker(settle / 4)
	defer tick.Stop()

	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if IsAudioFile(event.Name) {
				lastSeen[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			q.logger.Warn("watcher error", "dir", dir, "error", err)

		case now := <-tick.C:
			for path, seen := range lastSeen {
				if now.Sub(seen) < settle {
					continue
				}
				delete(lastSeen, path)
				if skip != nil && skip(path) {
					q.logger.Debug("ignored watched file", "path", path)
					continue
				}
				if q.Add(path) == 0 {
					continue
				}
				q.logger.Info("queued new file", "path", path)
				if onAdd != nil {
					for _, item := range q.Items() {
						if item.Path == normalize(path) {
							onAdd(item)
							break
						}
					}
				}
			}
		}
	}
}
