package model

import (
	"path/filepath"
	"strings"
)

// QueueItem is one file waiting to be processed.
//
// Path is the item's identity inside a queue and never changes once the item
// has been inserted. Tags are populated by the tag reader at insertion time
// on a best-effort basis; unreadable fields are empty strings.
type QueueItem struct {
	// Path is the input file path.
	Path string

	// Tags holds the metadata read from the file.
	Tags Tags
}

// NewQueueItem creates a QueueItem, substituting empty tags for nil.
func NewQueueItem(path string, tags Tags) QueueItem {
	if tags == nil {
		tags = EmptyTags()
	}
	return QueueItem{Path: path, Tags: tags}
}

// Name returns the base file name of the item.
func (q QueueItem) Name() string {
	return filepath.Base(q.Path)
}

// Extension returns the upper-cased file extension without the dot,
// for example "FLAC".
func (q QueueItem) Extension() string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(q.Path), "."))
}
