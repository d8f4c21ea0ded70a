package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iD01tStore/MusicForge/internal/audio"
	"github.com/iD01tStore/MusicForge/internal/batch"
	"github.com/iD01tStore/MusicForge/internal/config"
	"github.com/iD01tStore/MusicForge/internal/encoder"
	ioutils "github.com/iD01tStore/MusicForge/internal/io"
	"github.com/iD01tStore/MusicForge/internal/model"
	"github.com/iD01tStore/MusicForge/internal/notify"
	"github.com/iD01tStore/MusicForge/internal/queue"
)

// ErrEmptyQueue is returned when a conversion is started with nothing queued.
var ErrEmptyQueue = errors.New("queue is empty")

// Planned is one dry-run entry: the command that would convert Item.
type Planned struct {
	Item   model.QueueItem
	Output string
	Plan   model.CommandPlan
}

// Manager wires the queue, encoder, scheduler and notifier together. Both
// the CLI and the TUI drive conversions through it.
type Manager struct {
	settings *config.Settings
	logger   *slog.Logger

	queue        *queue.Queue
	tagger       *audio.Tagger
	imageService *ioutils.ImageService
	invoker      *encoder.Invoker
	prober       *encoder.Prober
	scheduler    *batch.Scheduler
	notifier     *notify.Notifier[batch.Event]

	onEvent func(batch.Event)

	converted atomic.Int32
	failed    atomic.Int32
	closeOnce sync.Once
}

// NewManager creates a Manager and starts its workers. onEvent receives
// every batch event, one at a time and in order, on the notifier goroutine.
// ctx bounds running encoder processes; cancelling it aborts them.
func NewManager(ctx context.Context, settings *config.Settings, logger *slog.Logger, onEvent func(batch.Event)) *Manager {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ffmpeg, err := encoder.Locate(settings.Encoder.Path)
	if err != nil {
		logger.Warn("ffmpeg not found, conversions will fail until it is installed", "error", err)
	}
	ffprobe, err := encoder.LocateProbe(settings.Encoder.ProbePath)
	if err != nil {
		logger.Debug("ffprobe not found, fade-out needs it", "error", err)
	}

	invoker := encoder.NewInvoker(ffmpeg)
	invoker.Timeout = settings.Timeout()

	m := &Manager{
		settings:     settings,
		logger:       logger,
		tagger:       audio.NewTagger(logger),
		imageService: ioutils.NewImageService(),
		invoker:      invoker,
		prober:       encoder.NewProber(ffprobe),
		onEvent:      onEvent,
	}
	m.queue = queue.New(m.tagger.ReadTags, logger)

	m.notifier = notify.New(m.deliver, notify.WithErrorHandler[batch.Event](func(err error) {
		logger.Error("event handler failed", "error", err)
	}))
	m.notifier.Start(context.WithoutCancel(ctx))

	runner := &batch.Runner{
		Encoder: m.invoker,
		Prober:  m.prober,
		Logger:  logger,
	}
	if settings.Extras.EmbedCoverArt {
		runner.Covers = m.tagger
		runner.Images = m.imageService
		runner.CoverMaxSize = settings.Extras.CoverArtMaxSize
	}

	opts := []batch.Option{
		batch.WithPublisher(m.notifier),
		batch.WithLogger(logger),
		batch.WithContext(ctx),
	}
	if format, ok := settings.PlaylistFormat(); ok {
		opts = append(opts, batch.WithPlaylist(audio.NewPlaylistCreator(format, settings.Extras.M3UExtended)))
	}
	m.scheduler = batch.NewScheduler(runner, settings.Workers.Max, opts...)

	return m
}

// Queue returns the file queue.
func (m *Manager) Queue() *queue.Queue {
	return m.queue
}

// Tagger returns the tag reader/writer.
func (m *Manager) Tagger() *audio.Tagger {
	return m.tagger
}

// Images returns the cover art image service.
func (m *Manager) Images() *ioutils.ImageService {
	return m.imageService
}

// Settings returns the active settings.
func (m *Manager) Settings() *config.Settings {
	return m.settings
}

// Options returns a fresh options template built from the settings.
func (m *Manager) Options() model.ProcessingOptions {
	return m.settings.ProcessingOptions()
}

// AddPaths queues files and folders, returning how many files were new.
func (m *Manager) AddPaths(paths ...string) (int, error) {
	return m.queue.AddAny(paths...)
}

// SetWorkers resizes the worker pool.
func (m *Manager) SetWorkers(n int) {
	m.settings.Workers.Max = n
	m.scheduler.Resize(n)
	m.logger.Info("worker pool resized", "workers", m.scheduler.Size())
}

// Workers returns the current pool size.
func (m *Manager) Workers() int {
	return m.scheduler.Size()
}

// Plan returns the encoder commands that Convert would run for the queued
// files, without running them.
func (m *Manager) Plan(opts model.ProcessingOptions) ([]Planned, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	items := m.queue.Items()
	inputs := make([]string, len(items))
	for i, item := range items {
		inputs[i] = item.Path
	}
	outputs := ioutils.OutputPaths(opts.OutputDir, inputs, opts.Format)

	planned := make([]Planned, len(items))
	for i, item := range items {
		planned[i] = Planned{
			Item:   item,
			Output: outputs[i],
			Plan:   encoder.Synthesize(item.Path, outputs[i], opts.WithTags(item.Tags)),
		}
	}
	return planned, nil
}

// Convert submits every queued file as one batch and returns immediately.
func (m *Manager) Convert(opts model.ProcessingOptions) (*batch.Batch, error) {
	items := m.queue.Items()
	if len(items) == 0 {
		return nil, ErrEmptyQueue
	}
	return m.scheduler.SubmitBatch(items, opts)
}

// Run converts every queued file and waits for the batch to finish.
func (m *Manager) Run(ctx context.Context, opts model.ProcessingOptions) ([]batch.Result, error) {
	b, err := m.Convert(opts)
	if err != nil {
		return nil, err
	}
	return b.Wait(ctx)
}

// Watch converts audio files as they appear in dir until ctx is done. Each
// new file is submitted as its own batch, without a playlist. Files written
// by these conversions are never picked up again, so the output directory
// may be the watched folder itself.
func (m *Manager) Watch(ctx context.Context, dir string, settle time.Duration, opts model.ProcessingOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	// Only the watching goroutine touches produced.
	produced := make(map[string]bool)
	skip := func(path string) bool {
		return produced[ioutils.PathKey(path)]
	}

	return m.queue.Watch(ctx, dir, settle, skip, func(item model.QueueItem) {
		b, err := m.scheduler.SubmitBatch([]model.QueueItem{item}, opts, batch.WithoutPlaylist())
		if err != nil {
			m.logger.Error("submit watched file", "path", item.Path, "error", err)
			return
		}
		for _, output := range b.Outputs() {
			produced[ioutils.PathKey(output)] = true
		}
	})
}

// GetProgress returns how many files have been converted and how many
// failed since the Manager was created.
func (m *Manager) GetProgress() (converted, failed int32) {
	return m.converted.Load(), m.failed.Load()
}

// Close waits for queued conversions to finish, then delivers any remaining
// events before returning.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.scheduler.Shutdown(true)
		m.notifier.Stop()
		<-m.notifier.Done()
	})
}

func (m *Manager) deliver(event batch.Event) error {
	switch event.Kind {
	case batch.EventSucceeded:
		m.converted.Add(1)
	case batch.EventFailed:
		m.failed.Add(1)
	}
	if m.onEvent != nil {
		m.onEvent(event)
	}
	return nil
}

// Describe returns a short description of the encoder setup for logs.
func (m *Manager) Describe() string {
	timeout := "none"
	if m.invoker.Timeout > 0 {
		timeout = m.invoker.Timeout.String()
	}
	return fmt.Sprintf("encoder=%s workers=%d timeout=%s", m.invoker.Binary, m.scheduler.Size(), timeout)
}
