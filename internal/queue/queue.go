package queue

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/iD01tStore/MusicForge/internal/model"
)

// AudioExtensions lists the file extensions accepted when scanning folders.
var AudioExtensions = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a", ".aac", ".wma"}

// IsAudioFile reports whether path has one of AudioExtensions.
func IsAudioFile(path string) bool {
	return slices.Contains(AudioExtensions, strings.ToLower(filepath.Ext(path)))
}

// TagReader reads a file's tags. It must not fail; unreadable files yield
// empty tags.
type TagReader func(path string) model.Tags

// Queue holds the files waiting to be converted.
//
// Paths are normalized to absolute, cleaned form and are unique: adding a
// path that is already queued is a no-op. A Queue is safe for concurrent use.
type Queue struct {
	readTags TagReader
	logger   *slog.Logger

	mu    sync.RWMutex
	items []model.QueueItem
	paths map[string]struct{}
}

// New creates an empty Queue. Tags are read with readTags when files are
// added; a nil readTags leaves them empty.
func New(readTags TagReader, logger *slog.Logger) *Queue {
	if readTags == nil {
		readTags = func(string) model.Tags { return model.EmptyTags() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		readTags: readTags,
		logger:   logger,
		paths:    make(map[string]struct{}),
	}
}

// Add queues regular files and returns how many were new. Duplicates,
// missing files and directories are skipped.
func (q *Queue) Add(paths ...string) int {
	added := 0
	for _, raw := range paths {
		path, ok := q.accept(raw)
		if !ok {
			continue
		}

		// Tag I/O happens outside the lock.
		item := model.NewQueueItem(path, q.readTags(path))

		q.mu.Lock()
		if _, exists := q.paths[path]; !exists {
			q.paths[path] = struct{}{}
			q.items = append(q.items, item)
			added++
		}
		q.mu.Unlock()
	}
	return added
}

func (q *Queue) accept(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	path := normalize(raw)
	if q.Contains(path) {
		return "", false
	}

	info, err := os.Stat(path)
	if err != nil {
		q.logger.Warn("skipping file", "path", path, "error", err)
		return "", false
	}
	if !info.Mode().IsRegular() {
		q.logger.Warn("skipping non-regular file", "path", path)
		return "", false
	}
	return path, true
}

// AddFolder recursively queues every audio file under dir, in lexical order,
// and returns how many were new.
func (q *Queue) AddFolder(dir string) (int, error) {
	files, err := ScanFolder(dir)
	if err != nil {
		return 0, err
	}
	return q.Add(files...), nil
}

// AddAny queues files and expands directories with AddFolder.
func (q *Queue) AddAny(paths ...string) (int, error) {
	added := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return added, fmt.Errorf("add %s: %w", path, err)
		}
		if info.IsDir() {
			n, err := q.AddFolder(path)
			added += n
			if err != nil {
				return added, err
			}
			continue
		}
		added += q.Add(path)
	}
	return added, nil
}

// ScanFolder returns the audio files under dir, recursively, in lexical order.
func ScanFolder(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scan folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan folder: %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan folder: %w", err)
	}
	return files, nil
}

// Remove drops path from the queue and reports whether it was present.
func (q *Queue) Remove(path string) bool {
	path = normalize(path)

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.paths[path]; !ok {
		return false
	}
	delete(q.paths, path)
	q.items = slices.DeleteFunc(q.items, func(item model.QueueItem) bool {
		return item.Path == path
	})
	return true
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	q.paths = make(map[string]struct{})
}

// Items returns a snapshot of the queue in insertion order. The snapshot
// does not share tag maps with the queue.
func (q *Queue) Items() []model.QueueItem {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := make([]model.QueueItem, len(q.items))
	for i, item := range q.items {
		items[i] = model.QueueItem{Path: item.Path, Tags: item.Tags.Clone()}
	}
	return items
}

// Len returns the number of queued files.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Contains reports whether path is queued.
func (q *Queue) Contains(path string) bool {
	path = normalize(path)

	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.paths[path]
	return ok
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
