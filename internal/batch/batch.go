package batch

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Batch tracks one SubmitBatch call.
type Batch struct {
	// ID uniquely identifies the batch in events.
	ID string

	// OutputDir is where the batch writes its files.
	OutputDir string

	started      time.Time
	skipPlaylist bool
	outputs      []string

	mu        sync.Mutex
	results   []Result
	remaining int
	summary   Summary
	done      chan struct{}
}

func newBatch(id, outputDir string, size int) *Batch {
	return &Batch{
		ID:        id,
		OutputDir: outputDir,
		started:   time.Now(),
		results:   make([]Result, size),
		remaining: size,
		summary:   Summary{Total: size},
		done:      make(chan struct{}),
	}
}

// record stores the result for task index i and reports whether it was the
// last outstanding task.
func (b *Batch) record(i int, res Result) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.results[i] = res
	if res.Success() {
		b.summary.Succeeded++
	} else {
		b.summary.Failed++
	}
	b.remaining--
	return b.remaining == 0
}

func (b *Batch) finish(playlist string) Summary {
	b.mu.Lock()
	b.summary.Playlist = playlist
	b.summary.Elapsed = time.Since(b.started)
	summary := b.summary
	b.mu.Unlock()

	close(b.done)
	return summary
}

// Len returns the number of files in the batch.
func (b *Batch) Len() int {
	return len(b.results)
}

// Outputs returns the output path assigned to each file, in submission
// order.
func (b *Batch) Outputs() []string {
	return slices.Clone(b.outputs)
}

// Progress returns how many files have finished.
func (b *Batch) Progress() (finished, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.results) - b.remaining, len(b.results)
}

// Done is closed once every file has finished and the batch's final event
// has been published.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch finishes or ctx is done and returns the
// results in submission order.
func (b *Batch) Wait(ctx context.Context) ([]Result, error) {
	select {
	case <-b.done:
		return b.Results(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Results returns a copy of the results recorded so far, in submission
// order. Unfinished entries are zero Results.
func (b *Batch) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.results)
}

// Summary returns the current outcome counts.
func (b *Batch) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}
