package batch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/iD01tStore/MusicForge/internal/model"
)

// EventKind identifies what happened to a task or batch.
type EventKind int

const (
	EventStarted EventKind = iota
	EventSucceeded
	EventFailed
	EventBatchDone
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventBatchDone:
		return "batch done"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Level indicates the severity/type of an event message.
type Level int

const (
	LevelInfo Level = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// Event reports progress of a batch. Events for one batch are published
// from worker goroutines; consumers receive them through a notifier.
type Event struct {
	BatchID string
	Kind    EventKind
	Time    time.Time

	// Task events.
	Item   model.QueueItem
	Output string
	Result model.TaskResult
	Err    error

	// Batch events.
	Summary Summary
}

// Summary counts a batch's outcomes.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Playlist  string
	Elapsed   time.Duration
}

// Level returns the display level of the event.
func (e Event) Level() Level {
	switch e.Kind {
	case EventStarted:
		return LevelVerbose
	case EventSucceeded:
		return LevelSuccess
	case EventFailed:
		return LevelError
	case EventBatchDone:
		if e.Summary.Failed > 0 {
			return LevelWarning
		}
		return LevelSuccess
	default:
		return LevelInfo
	}
}

// Message returns a one-line human-readable description.
func (e Event) Message() string {
	name := filepath.Base(e.Item.Path)
	switch e.Kind {
	case EventStarted:
		return fmt.Sprintf("Converting: %s", name)
	case EventSucceeded:
		return fmt.Sprintf("Converted: %s -> %s", name, filepath.Base(e.Output))
	case EventFailed:
		return fmt.Sprintf("Error converting %s: %v", name, e.Err)
	case EventBatchDone:
		if e.Summary.Failed > 0 {
			return fmt.Sprintf("Finished batch, %d of %d files failed", e.Summary.Failed, e.Summary.Total)
		}
		return fmt.Sprintf("Successfully converted %d files", e.Summary.Succeeded)
	default:
		return e.Kind.String()
	}
}

// Publisher receives events. notify.Notifier satisfies it.
type Publisher interface {
	Submit(Event) bool
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

// Submit calls f.
func (f PublisherFunc) Submit(e Event) bool {
	f(e)
	return true
}
