package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iD01tStore/MusicForge/internal/batch"
	"github.com/iD01tStore/MusicForge/internal/config"
	"github.com/iD01tStore/MusicForge/internal/model"
)

// fakeFFmpeg writes a stub encoder that copies "converted" into its last
// argument and fails for inputs containing "broken".
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := `#!/bin/sh
for last; do :; done
case "$*" in
  *broken*) echo "broken.wav: Invalid data found when processing input" >&2; exit 1 ;;
esac
echo converted > "$last"
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.Encoder.Path = fakeFFmpeg(t)
	s.Encoder.TaskTimeout = 10
	s.Output.Dir = filepath.Join(t.TempDir(), "out")
	s.Extras.EmbedCoverArt = false
	return s
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_Run(t *testing.T) {
	settings := testSettings(t)
	settings.Extras.CreatePlaylist = true

	var (
		mu     sync.Mutex
		events []batch.Event
	)
	m := NewManager(context.Background(), settings, quietLogger(), func(e batch.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	in := t.TempDir()
	added, err := m.AddPaths(touch(t, in, "one.wav"), touch(t, in, "broken.wav"), touch(t, in, "three.wav"))
	if err != nil || added != 3 {
		t.Fatalf("AddPaths() = %d, %v", added, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	results, err := m.Run(ctx, m.Options())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	m.Close()

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if !results[0].Success() || results[1].Success() || !results[2].Success() {
		t.Errorf("unexpected outcomes: %v / %v / %v", results[0].Err, results[1].Err, results[2].Err)
	}
	if !strings.Contains(results[1].Err.Error(), "Invalid data") {
		t.Errorf("failure lacks diagnostic: %v", results[1].Err)
	}

	data, err := os.ReadFile(filepath.Join(settings.Output.Dir, "one.mp3"))
	if err != nil || strings.TrimSpace(string(data)) != "converted" {
		t.Errorf("output = %q, %v", data, err)
	}

	converted, failed := m.GetProgress()
	if converted != 2 || failed != 1 {
		t.Errorf("GetProgress() = %d, %d", converted, failed)
	}

	mu.Lock()
	defer mu.Unlock()
	last := events[len(events)-1]
	if last.Kind != batch.EventBatchDone {
		t.Fatalf("last event = %v, want batch done", last.Kind)
	}
	if last.Summary.Playlist == "" {
		t.Error("playlist not written")
	}
}

func TestManager_RunEmptyQueue(t *testing.T) {
	m := NewManager(context.Background(), testSettings(t), quietLogger(), nil)
	defer m.Close()

	if _, err := m.Run(context.Background(), m.Options()); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("Run() error = %v, want ErrEmptyQueue", err)
	}
}

func TestManager_Plan(t *testing.T) {
	settings := testSettings(t)
	m := NewManager(context.Background(), settings, quietLogger(), nil)
	defer m.Close()

	in := t.TempDir()
	m.AddPaths(touch(t, in, "song.wav"))

	opts := m.Options()
	opts.Format = model.FormatFLAC
	opts.Normalize = true
	opts.Tags = model.Tags{model.TagArtist: "Someone"}

	planned, err := m.Plan(opts)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(planned) != 1 {
		t.Fatalf("got %d plans", len(planned))
	}
	cmd := planned[0].Plan.String()
	for _, want := range []string{"loudnorm", "artist=Someone", "flac"} {
		if !strings.Contains(cmd, want) {
			t.Errorf("plan %q missing %q", cmd, want)
		}
	}
	if planned[0].Output != filepath.Join(settings.Output.Dir, "song.flac") {
		t.Errorf("output = %q", planned[0].Output)
	}
	if _, err := os.Stat(planned[0].Output); !os.IsNotExist(err) {
		t.Error("Plan() ran the encoder")
	}

	opts.Channels = 6
	if _, err := m.Plan(opts); !errors.Is(err, model.ErrInvalidOptions) {
		t.Errorf("Plan() error = %v, want ErrInvalidOptions", err)
	}
}

func TestManager_SetWorkers(t *testing.T) {
	m := NewManager(context.Background(), testSettings(t), quietLogger(), nil)
	defer m.Close()

	m.SetWorkers(5)
	if m.Workers() != 5 || m.Settings().Workers.Max != 5 {
		t.Errorf("Workers() = %d", m.Workers())
	}
	m.SetWorkers(1)
	if m.Workers() != batch.MinWorkers {
		t.Errorf("Workers() = %d, want %d", m.Workers(), batch.MinWorkers)
	}
	if !strings.Contains(m.Describe(), "timeout=10s") {
		t.Errorf("Describe() = %q", m.Describe())
	}
}

func TestManager_WatchIgnoresOwnOutputs(t *testing.T) {
	dir := t.TempDir()
	settings := testSettings(t)
	settings.Output.Dir = dir
	settings.Extras.CreatePlaylist = true

	var (
		mu      sync.Mutex
		outputs []string
	)
	succeeded := make(chan struct{}, 8)
	m := NewManager(context.Background(), settings, quietLogger(), func(e batch.Event) {
		if e.Kind != batch.EventSucceeded {
			return
		}
		mu.Lock()
		outputs = append(outputs, filepath.Base(e.Output))
		mu.Unlock()
		succeeded <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- m.Watch(ctx, dir, 100*time.Millisecond, m.Options())
	}()

	time.Sleep(200 * time.Millisecond)
	touch(t, dir, "a.wav")

	select {
	case <-succeeded:
	case <-time.After(10 * time.Second):
		t.Fatal("dropped file was not converted")
	}

	// Several settle periods: long enough for a converted file to be
	// picked up again if it were not ignored.
	time.Sleep(time.Second)
	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	m.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(outputs) != 1 || outputs[0] != "a.mp3" {
		t.Errorf("conversions = %v, want [a.mp3]", outputs)
	}
	playlists, _ := filepath.Glob(filepath.Join(dir, "*.m3u"))
	if len(playlists) != 0 {
		t.Errorf("watch batches wrote playlists: %v", playlists)
	}
}
