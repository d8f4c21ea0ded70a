package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iD01tStore/MusicForge/internal/audio"
	ioutils "github.com/iD01tStore/MusicForge/internal/io"
	"github.com/iD01tStore/MusicForge/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrShutdown is returned by SubmitBatch after Shutdown.
var ErrShutdown = errors.New("scheduler shut down")

// MinWorkers is the smallest pool size.
const MinWorkers = 2

// PoolSize returns the pool size for a requested worker count: at least
// MinWorkers, and runtime.NumCPU() when workers is not positive.
func PoolSize(workers int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return max(MinWorkers, workers)
}

type task struct {
	batch  *Batch
	index  int
	item   model.QueueItem
	output string
	opts   model.ProcessingOptions
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPublisher sets where events are sent.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithLogger sets the scheduler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPlaylist writes a playlist of each batch's converted files into the
// batch's output directory. An existing file of the same name is kept and
// the playlist gets a " (n)" suffix instead.
func WithPlaylist(creator *audio.PlaylistCreator) Option {
	return func(s *Scheduler) { s.playlist = creator }
}

// WithContext sets the context passed to every task. Cancelling it aborts
// running encoder processes.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// Scheduler runs files through a TaskRunner on a bounded pool of
// long-lived workers.
//
// Tasks from all batches share one FIFO queue. Submitting never blocks and
// a failing file never affects any other file; its failure is reported
// through its Result and an EventFailed event.
type Scheduler struct {
	runner    TaskRunner
	publisher Publisher
	playlist  *audio.PlaylistCreator
	logger    *slog.Logger
	ctx       context.Context

	mu      sync.Mutex
	cond    *sync.Cond
	pending []task
	claimed map[string]bool
	target  int
	live    int
	closed  bool

	group errgroup.Group
}

// NewScheduler creates a Scheduler and starts PoolSize(workers) workers.
func NewScheduler(runner TaskRunner, workers int, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:  runner,
		logger:  slog.Default(),
		ctx:     context.Background(),
		claimed: make(map[string]bool),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}

	s.Resize(workers)
	return s
}

// Size returns the configured pool size.
func (s *Scheduler) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Pending returns the number of tasks waiting for a worker.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Resize changes the pool size to PoolSize(workers). Growth takes effect
// immediately; surplus workers exit after finishing their current task.
func (s *Scheduler) Resize(workers int) {
	size := PoolSize(workers)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.target = size
	if s.closed {
		return
	}
	for s.live < s.target {
		s.live++
		s.group.Go(s.work)
	}
	s.cond.Broadcast()
}

// SubmitOption configures a single batch.
type SubmitOption func(*Batch)

// WithoutPlaylist skips the playlist for this batch even when the scheduler
// writes playlists.
func WithoutPlaylist() SubmitOption {
	return func(b *Batch) { b.skipPlaylist = true }
}

// SubmitBatch validates opts, creates the output directory and queues one
// task per item. It returns as soon as the tasks are queued.
//
// Every task gets an output path that no queued or running task of any
// batch holds; the path is released when the task finishes.
//
// Errors are returned only for problems found before dispatch: invalid
// options, an output directory that cannot be created, or a scheduler that
// has been shut down. Per-file failures are reported through results and
// events.
func (s *Scheduler) SubmitBatch(items []model.QueueItem, opts model.ProcessingOptions, submitOpts ...SubmitOption) (*Batch, error) {
	if s.isClosed() {
		return nil, ErrShutdown
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ioutils.EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	inputs := make([]string, len(items))
	for i, item := range items {
		inputs[i] = item.Path
	}

	b := newBatch(uuid.NewString(), opts.OutputDir, len(items))
	for _, opt := range submitOpts {
		opt(b)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShutdown
	}
	outputs := ioutils.ReserveOutputPaths(opts.OutputDir, inputs, opts.Format, s.claimed)
	b.outputs = outputs
	tasks := make([]task, len(items))
	for i, item := range items {
		tasks[i] = task{
			batch:  b,
			index:  i,
			item:   item,
			output: outputs[i],
			opts:   opts.Clone(),
		}
	}
	s.pending = append(s.pending, tasks...)
	s.cond.Broadcast()
	s.mu.Unlock()

	s.logger.Info("batch submitted", "batch", b.ID, "files", len(items), "output_dir", opts.OutputDir)

	if len(items) == 0 {
		s.finishBatch(b)
	}
	return b, nil
}

// Shutdown stops accepting batches. Queued and running tasks still
// complete. With wait set, Shutdown blocks until every worker has exited.
func (s *Scheduler) Shutdown(wait bool) {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	if wait {
		_ = s.group.Wait()
	}
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scheduler) work() error {
	for {
		t, ok := s.next()
		if !ok {
			return nil
		}
		s.execute(t)
	}
}

// next blocks until a task is available. It reports false when this worker
// should exit, either because the pool shrank or because the scheduler is
// shut down and the queue is empty.
func (s *Scheduler) next() (task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.pending) == 0 && !s.closed && s.live <= s.target {
		s.cond.Wait()
	}
	if s.live > s.target || len(s.pending) == 0 {
		s.live--
		return task{}, false
	}

	t := s.pending[0]
	s.pending[0] = task{}
	s.pending = s.pending[1:]
	return t, true
}

func (s *Scheduler) execute(t task) {
	s.publish(Event{BatchID: t.batch.ID, Kind: EventStarted, Item: t.item, Output: t.output})

	res := s.run(t)
	s.release(t.output)

	kind := EventSucceeded
	if !res.Success() {
		kind = EventFailed
		s.logger.Warn("file failed", "batch", t.batch.ID, "path", t.item.Path, "error", res.Err)
	} else {
		s.logger.Debug("file converted", "batch", t.batch.ID, "path", t.item.Path, "output", t.output, "elapsed", res.Elapsed)
	}
	s.publish(Event{
		BatchID: t.batch.ID,
		Kind:    kind,
		Item:    t.item,
		Output:  t.output,
		Result:  res.Result,
		Err:     res.Err,
	})

	if t.batch.record(t.index, res) {
		s.finishBatch(t.batch)
	}
}

func (s *Scheduler) run(t task) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{Item: t.item, Output: t.output, Err: fmt.Errorf("%w: %v", ErrTaskPanic, rec)}
		}
	}()
	return s.runner.Run(s.ctx, t.item, t.output, t.opts)
}

func (s *Scheduler) release(output string) {
	s.mu.Lock()
	delete(s.claimed, ioutils.PathKey(output))
	s.mu.Unlock()
}

func (s *Scheduler) finishBatch(b *Batch) {
	playlist := s.writePlaylist(b)
	summary := b.finish(playlist)

	s.logger.Info("batch finished",
		"batch", b.ID,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed,
	)
	s.publish(Event{BatchID: b.ID, Kind: EventBatchDone, Summary: summary})
}

func (s *Scheduler) writePlaylist(b *Batch) string {
	if s.playlist == nil || b.skipPlaylist {
		return ""
	}

	var (
		entries []audio.PlaylistEntry
		album   string
	)
	for _, res := range b.Results() {
		if !res.Success() {
			continue
		}
		if album == "" {
			album = res.Tags.Get(model.TagAlbum)
		}
		entries = append(entries, audio.PlaylistEntry{
			Path:     res.Output,
			Title:    res.Tags.Get(model.TagTitle),
			Artist:   res.Tags.Get(model.TagArtist),
			Duration: res.Duration,
		})
	}
	if len(entries) == 0 {
		return ""
	}

	title := album
	if title == "" {
		title = "playlist"
	}
	name := ioutils.SanitizeFileName(title)
	if name == "" {
		name = "playlist"
	}
	path := filepath.Join(b.OutputDir, name+s.playlist.Format().Extension())

	content := s.playlist.CreatePlaylist(audio.Playlist{Title: title, Entries: entries})
	written, err := ioutils.WriteNewFile(s.ctx, path, []byte(content))
	if err != nil {
		s.logger.Warn("playlist write failed", "batch", b.ID, "path", path, "error", err)
		return ""
	}
	return written
}

func (s *Scheduler) publish(e Event) {
	if s.publisher == nil {
		return
	}
	e.Time = time.Now()
	s.publisher.Submit(e)
}
