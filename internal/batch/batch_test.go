package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iD01tStore/MusicForge/internal/audio"
	"github.com/iD01tStore/MusicForge/internal/encoder"
	"github.com/iD01tStore/MusicForge/internal/model"
)

// fakeEncoder records plans and fails any plan whose input contains fail.
type fakeEncoder struct {
	mu    sync.Mutex
	plans []model.CommandPlan
	delay time.Duration
}

func (f *fakeEncoder) Process(ctx context.Context, plan model.CommandPlan) (model.TaskResult, error) {
	f.mu.Lock()
	f.plans = append(f.plans, plan)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.TaskResult{ExitCode: -1}, ctx.Err()
		}
	}
	if strings.Contains(plan.String(), "fail") {
		return model.TaskResult{ExitCode: 1, Stderr: "Invalid data found when processing input\n"}, nil
	}
	return model.TaskResult{ExitCode: 0}, nil
}

func (f *fakeEncoder) Plans() []model.CommandPlan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CommandPlan(nil), f.plans...)
}

type fakeProber struct {
	duration float64
	err      error
	calls    int
}

func (f *fakeProber) Duration(context.Context, string) (float64, error) {
	f.calls++
	return f.duration, f.err
}

type runnerFunc func(ctx context.Context, item model.QueueItem, output string, opts model.ProcessingOptions) Result

func (f runnerFunc) Run(ctx context.Context, item model.QueueItem, output string, opts model.ProcessingOptions) Result {
	return f(ctx, item, output, opts)
}

// collector gathers published events.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) Submit(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return true
}

func (c *collector) Kinds(kind EventKind) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func items(paths ...string) []model.QueueItem {
	out := make([]model.QueueItem, len(paths))
	for i, p := range paths {
		out[i] = model.NewQueueItem(p, nil)
	}
	return out
}

func options(t *testing.T) model.ProcessingOptions {
	t.Helper()
	opts := model.DefaultOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "out")
	return opts
}

func wait(t *testing.T, b *Batch) []Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := b.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return results
}

func TestScheduler_FailureIsIsolated(t *testing.T) {
	enc := &fakeEncoder{}
	events := &collector{}
	sched := NewScheduler(&Runner{Encoder: enc}, 2, WithPublisher(events))
	defer sched.Shutdown(true)

	opts := options(t)
	b, err := sched.SubmitBatch(items("/music/one.wav", "/music/fail.wav", "/music/three.wav"), opts)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}

	results := wait(t, b)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []bool{true, false, true} {
		if results[i].Success() != want {
			t.Errorf("result %d success = %v, want %v (err %v)", i, results[i].Success(), want, results[i].Err)
		}
	}
	if !errors.Is(results[1].Err, ErrEncoderFailed) {
		t.Errorf("failed result error = %v, want ErrEncoderFailed", results[1].Err)
	}
	if !strings.Contains(results[1].Err.Error(), "Invalid data") {
		t.Errorf("error does not carry diagnostic: %v", results[1].Err)
	}

	if got := results[0].Output; got != filepath.Join(opts.OutputDir, "one.mp3") {
		t.Errorf("output = %q", got)
	}

	summary := b.Summary()
	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("Summary() = %+v", summary)
	}
	if n := len(events.Kinds(EventStarted)); n != 3 {
		t.Errorf("started events = %d, want 3", n)
	}
	if n := len(events.Kinds(EventFailed)); n != 1 {
		t.Errorf("failed events = %d, want 1", n)
	}
	done := events.Kinds(EventBatchDone)
	if len(done) != 1 || done[0].BatchID != b.ID {
		t.Fatalf("batch done events = %+v", done)
	}
	if done[0].Level() != LevelWarning {
		t.Errorf("batch done level = %v, want warning", done[0].Level())
	}
	if _, err := os.Stat(opts.OutputDir); err != nil {
		t.Errorf("output directory not created: %v", err)
	}
}

func TestScheduler_InvalidOptions(t *testing.T) {
	sched := NewScheduler(&Runner{Encoder: &fakeEncoder{}}, 2)
	defer sched.Shutdown(true)

	opts := options(t)
	opts.SampleRate = 1

	_, err := sched.SubmitBatch(items("/music/a.wav"), opts)
	if !errors.Is(err, model.ErrInvalidOptions) {
		t.Fatalf("SubmitBatch() error = %v, want ErrInvalidOptions", err)
	}
	if _, statErr := os.Stat(opts.OutputDir); !os.IsNotExist(statErr) {
		t.Errorf("output directory created for rejected batch")
	}
}

func TestScheduler_DoesNotMutateOptions(t *testing.T) {
	var mu sync.Mutex
	var seen []model.ProcessingOptions
	runner := runnerFunc(func(_ context.Context, item model.QueueItem, output string, opts model.ProcessingOptions) Result {
		opts.Tags[model.TagTitle] = "changed by task"
		mu.Lock()
		seen = append(seen, opts)
		mu.Unlock()
		return Result{Item: item, Output: output}
	})

	sched := NewScheduler(runner, 2)
	defer sched.Shutdown(true)

	opts := options(t)
	opts.Tags = model.Tags{model.TagArtist: "Batch Artist"}

	b, err := sched.SubmitBatch(items("/music/a.wav", "/music/b.wav"), opts)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	wait(t, b)

	if _, ok := opts.Tags[model.TagTitle]; ok {
		t.Error("task mutation leaked into caller's options")
	}
	if len(seen) != 2 || seen[0].Tags[model.TagArtist] != "Batch Artist" {
		t.Errorf("tasks did not receive options: %+v", seen)
	}
}

func TestScheduler_EmptyBatch(t *testing.T) {
	events := &collector{}
	sched := NewScheduler(&Runner{Encoder: &fakeEncoder{}}, 2, WithPublisher(events))
	defer sched.Shutdown(true)

	b, err := sched.SubmitBatch(nil, options(t))
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if results := wait(t, b); len(results) != 0 {
		t.Errorf("got %d results", len(results))
	}
	if n := len(events.Kinds(EventBatchDone)); n != 1 {
		t.Errorf("batch done events = %d, want 1", n)
	}
}

func TestScheduler_Shutdown(t *testing.T) {
	enc := &fakeEncoder{delay: 50 * time.Millisecond}
	sched := NewScheduler(&Runner{Encoder: enc}, 2)

	b, err := sched.SubmitBatch(items("/m/a.wav", "/m/b.wav", "/m/c.wav", "/m/d.wav"), options(t))
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	sched.Shutdown(true)

	select {
	case <-b.Done():
	default:
		t.Fatal("queued tasks were dropped by Shutdown")
	}
	if got := len(enc.Plans()); got != 4 {
		t.Errorf("encoder ran %d times, want 4", got)
	}

	if _, err := sched.SubmitBatch(items("/m/e.wav"), options(t)); !errors.Is(err, ErrShutdown) {
		t.Errorf("SubmitBatch() after Shutdown error = %v, want ErrShutdown", err)
	}
}

func TestScheduler_Resize(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		highest int
	)
	release := make(chan struct{})
	runner := runnerFunc(func(_ context.Context, item model.QueueItem, output string, _ model.ProcessingOptions) Result {
		mu.Lock()
		active++
		highest = max(highest, active)
		mu.Unlock()
		<-release
		mu.Lock()
		active--
		mu.Unlock()
		return Result{Item: item, Output: output}
	})

	sched := NewScheduler(runner, 2)
	defer sched.Shutdown(true)
	if sched.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", sched.Size())
	}

	b, err := sched.SubmitBatch(items("/m/1.wav", "/m/2.wav", "/m/3.wav", "/m/4.wav", "/m/5.wav"), options(t))
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}

	sched.Resize(4)
	if sched.Size() != 4 {
		t.Errorf("Size() after Resize = %d, want 4", sched.Size())
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := active
		mu.Unlock()
		if n == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("active workers = %d, want 4", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	wait(t, b)
	if highest > 4 {
		t.Errorf("concurrency reached %d with pool of 4", highest)
	}

	sched.Resize(0)
	if sched.Size() < MinWorkers {
		t.Errorf("Size() = %d, below minimum", sched.Size())
	}
}

func TestScheduler_RecoversRunnerPanic(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, item model.QueueItem, output string, _ model.ProcessingOptions) Result {
		if strings.Contains(item.Path, "boom") {
			panic("boom")
		}
		return Result{Item: item, Output: output}
	})
	sched := NewScheduler(runner, 2)
	defer sched.Shutdown(true)

	b, err := sched.SubmitBatch(items("/m/boom.wav", "/m/ok.wav"), options(t))
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	results := wait(t, b)
	if !errors.Is(results[0].Err, ErrTaskPanic) {
		t.Errorf("panicking task error = %v, want ErrTaskPanic", results[0].Err)
	}
	if !results[1].Success() {
		t.Errorf("other task failed: %v", results[1].Err)
	}
}

func TestScheduler_WritesPlaylist(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, item model.QueueItem, output string, opts model.ProcessingOptions) Result {
		return Result{Item: item, Output: output, Tags: opts.WithTags(item.Tags).Tags, Duration: 60}
	})
	sched := NewScheduler(runner, 2, WithPlaylist(audio.NewPlaylistCreator(audio.FormatM3U, true)))
	defer sched.Shutdown(true)

	opts := options(t)
	opts.Tags = model.Tags{model.TagAlbum: "Night/Drive"}

	b, err := sched.SubmitBatch(items("/m/a.wav", "/m/b.wav"), opts)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	wait(t, b)

	path := b.Summary().Playlist
	if path == "" {
		t.Fatal("no playlist written")
	}
	if filepath.Dir(path) != opts.OutputDir || filepath.Ext(path) != ".m3u" {
		t.Errorf("playlist path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	if !strings.Contains(string(data), "#EXTM3U") || !strings.Contains(string(data), "a.mp3") {
		t.Errorf("playlist content:\n%s", data)
	}
}

func TestScheduler_OutputsDistinctAcrossBatches(t *testing.T) {
	release := make(chan struct{})
	runner := runnerFunc(func(_ context.Context, item model.QueueItem, output string, _ model.ProcessingOptions) Result {
		<-release
		return Result{Item: item, Output: output}
	})
	sched := NewScheduler(runner, 2)
	defer sched.Shutdown(true)

	opts := options(t)
	first, err := sched.SubmitBatch(items("/drop/a.wav"), opts)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	second, err := sched.SubmitBatch(items("/drop/a.flac"), opts)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}

	a, b := first.Outputs()[0], second.Outputs()[0]
	if a == b {
		t.Fatalf("two running tasks share output %q", a)
	}
	if want := filepath.Join(opts.OutputDir, "a (2).mp3"); b != want {
		t.Errorf("second output = %q, want %q", b, want)
	}

	close(release)
	results := wait(t, first)
	wait(t, second)
	if results[0].Output != a {
		t.Errorf("result output = %q, want %q", results[0].Output, a)
	}

	third, err := sched.SubmitBatch(items("/drop/a.ogg"), opts)
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}
	if got := third.Outputs()[0]; got != a {
		t.Errorf("finished output not released: got %q, want %q", got, a)
	}
	wait(t, third)
}

func TestScheduler_PlaylistHandling(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, item model.QueueItem, output string, opts model.ProcessingOptions) Result {
		return Result{Item: item, Output: output, Tags: opts.WithTags(item.Tags).Tags, Duration: 60}
	})
	sched := NewScheduler(runner, 2, WithPlaylist(audio.NewPlaylistCreator(audio.FormatM3U, false)))
	defer sched.Shutdown(true)

	opts := options(t)
	opts.Tags = model.Tags{model.TagAlbum: "Mix"}
	existing := filepath.Join(opts.OutputDir, "Mix.m3u")
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("existing file kept", func(t *testing.T) {
		b, err := sched.SubmitBatch(items("/m/a.wav"), opts)
		if err != nil {
			t.Fatalf("SubmitBatch() error = %v", err)
		}
		wait(t, b)
		if want := filepath.Join(opts.OutputDir, "Mix (2).m3u"); b.Summary().Playlist != want {
			t.Errorf("playlist = %q, want %q", b.Summary().Playlist, want)
		}
		if data, _ := os.ReadFile(existing); string(data) != "keep" {
			t.Errorf("existing playlist overwritten: %q", data)
		}
	})

	t.Run("skipped on request", func(t *testing.T) {
		b, err := sched.SubmitBatch(items("/m/b.wav"), opts, WithoutPlaylist())
		if err != nil {
			t.Fatalf("SubmitBatch() error = %v", err)
		}
		wait(t, b)
		if b.Summary().Playlist != "" {
			t.Errorf("playlist = %q, want none", b.Summary().Playlist)
		}
		if _, err := os.Stat(filepath.Join(opts.OutputDir, "Mix (3).m3u")); err == nil {
			t.Error("playlist written for a batch that skipped it")
		}
	})
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("merges tags into plan", func(t *testing.T) {
		enc := &fakeEncoder{}
		r := &Runner{Encoder: enc}

		item := model.NewQueueItem("/in/song.wav", model.Tags{model.TagTitle: "Song", model.TagArtist: "File Artist"})
		opts := model.DefaultOptions()
		opts.Tags = model.Tags{model.TagArtist: "Override"}

		res := r.Run(ctx, item, "/out/song.mp3", opts)
		if !res.Success() {
			t.Fatalf("Run() error = %v", res.Err)
		}
		plan := res.Plan.String()
		if !strings.Contains(plan, "artist=Override") || !strings.Contains(plan, "title=Song") {
			t.Errorf("plan = %s", plan)
		}
		if res.Plan[len(res.Plan)-1] != "/out/song.mp3" {
			t.Errorf("output is not last argument: %v", res.Plan)
		}
	})

	t.Run("probes duration for fade out", func(t *testing.T) {
		prober := &fakeProber{duration: 120}
		r := &Runner{Encoder: &fakeEncoder{}, Prober: prober}

		opts := model.DefaultOptions()
		opts.FadeOut = 5

		res := r.Run(ctx, model.NewQueueItem("/in/a.wav", nil), "/out/a.mp3", opts)
		if prober.calls != 1 || res.Duration != 120 {
			t.Fatalf("prober calls = %d, duration = %v", prober.calls, res.Duration)
		}
		if !strings.Contains(res.Plan.String(), "afade=t=out:st=115") {
			t.Errorf("plan missing fade out: %s", res.Plan)
		}
	})

	t.Run("skips probe without fade out", func(t *testing.T) {
		prober := &fakeProber{duration: 120}
		r := &Runner{Encoder: &fakeEncoder{}, Prober: prober}

		r.Run(ctx, model.NewQueueItem("/in/a.wav", nil), "/out/a.mp3", model.DefaultOptions())
		if prober.calls != 0 {
			t.Errorf("prober called %d times", prober.calls)
		}
	})

	t.Run("probe failure drops fade out", func(t *testing.T) {
		r := &Runner{Encoder: &fakeEncoder{}, Prober: &fakeProber{err: errors.New("no duration")}}

		opts := model.DefaultOptions()
		opts.FadeOut = 5

		res := r.Run(ctx, model.NewQueueItem("/in/a.wav", nil), "/out/a.mp3", opts)
		if !res.Success() {
			t.Fatalf("Run() error = %v", res.Err)
		}
		if strings.Contains(res.Plan.String(), "t=out") {
			t.Errorf("fade out without duration: %s", res.Plan)
		}
	})

	t.Run("missing encoder", func(t *testing.T) {
		r := &Runner{}
		res := r.Run(ctx, model.NewQueueItem("/in/a.wav", nil), "/out/a.mp3", model.DefaultOptions())
		if !errors.Is(res.Err, encoder.ErrEncoderNotFound) {
			t.Errorf("Run() error = %v, want ErrEncoderNotFound", res.Err)
		}
		if len(res.Plan) == 0 {
			t.Error("plan not synthesized")
		}
	})
}
