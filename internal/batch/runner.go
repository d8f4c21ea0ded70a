package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/iD01tStore/MusicForge/internal/encoder"
	"github.com/iD01tStore/MusicForge/internal/model"
)

var (
	// ErrEncoderFailed is set on results whose encoder exited non-zero.
	ErrEncoderFailed = errors.New("encoder failed")

	// ErrTaskPanic is set on results whose task panicked.
	ErrTaskPanic = errors.New("task panicked")
)

// Result is the outcome of one file.
type Result struct {
	Item   model.QueueItem
	Output string

	// Tags are the merged tags written to the output.
	Tags model.Tags

	// Duration is the probed input duration in seconds, zero if unknown.
	Duration float64

	Plan    model.CommandPlan
	Result  model.TaskResult
	Err     error
	Elapsed time.Duration
}

// Success reports whether the file was converted.
func (r Result) Success() bool {
	return r.Err == nil && r.Result.Success()
}

// TaskRunner processes a single file.
type TaskRunner interface {
	Run(ctx context.Context, item model.QueueItem, output string, opts model.ProcessingOptions) Result
}

// Encoder runs an encoder command plan.
type Encoder interface {
	Process(ctx context.Context, plan model.CommandPlan) (model.TaskResult, error)
}

// DurationProber measures input duration.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// CoverTagger reads and embeds cover art.
type CoverTagger interface {
	CoverArt(path string) []byte
	EmbedCoverArt(path string, image []byte) error
}

// ImageProcessor prepares cover art before embedding.
type ImageProcessor interface {
	PrepareCover(ctx context.Context, data []byte, maxSize int) ([]byte, error)
}

// Runner is the standard TaskRunner: tag merge, optional duration probe,
// command synthesis, encoder run and optional cover art copy.
type Runner struct {
	Encoder Encoder

	// Prober is consulted only when a fade-out needs the input duration.
	Prober DurationProber

	// Covers and Images enable copying the input's cover art into MP3 and
	// FLAC outputs. Images may be nil to embed the picture unchanged.
	Covers       CoverTagger
	Images       ImageProcessor
	CoverMaxSize int

	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run converts item into output. It never panics and never returns a
// failure other than through Result.Err.
func (r *Runner) Run(ctx context.Context, item model.QueueItem, output string, opts model.ProcessingOptions) (res Result) {
	start := time.Now()
	res = Result{Item: item, Output: output}

	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("%w: %v", ErrTaskPanic, rec)
		}
		res.Elapsed = time.Since(start)
	}()

	task := opts.WithTags(item.Tags)
	if task.FadeOut > 0 && !task.TrimSilence && r.Prober != nil {
		duration, err := r.Prober.Duration(ctx, item.Path)
		if err != nil {
			r.logger().Warn("duration probe failed, fade-out skipped", "path", item.Path, "error", err)
		} else {
			task.Duration = duration
		}
	}
	res.Tags = task.Tags
	res.Duration = task.Duration

	res.Plan = encoder.Synthesize(item.Path, output, task)
	if r.Encoder == nil {
		res.Err = fmt.Errorf("%w: no encoder configured", encoder.ErrEncoderNotFound)
		return res
	}

	result, err := r.Encoder.Process(ctx, res.Plan)
	res.Result = result
	if err != nil {
		res.Err = err
		return res
	}
	if !result.Success() {
		res.Err = fmt.Errorf("%w: exit status %d: %s", ErrEncoderFailed, result.ExitCode, result.Diagnostic())
		return res
	}

	if r.Covers != nil {
		r.copyCover(ctx, item.Path, output)
	}
	return res
}

// copyCover is best-effort: failures are logged and never fail the task.
func (r *Runner) copyCover(ctx context.Context, input, output string) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mp3", ".flac":
	default:
		return
	}

	picture := r.Covers.CoverArt(input)
	if picture == nil {
		return
	}

	if r.Images != nil {
		prepared, err := r.Images.PrepareCover(ctx, picture, r.CoverMaxSize)
		if err != nil {
			r.logger().Warn("cover art resize failed", "path", input, "error", err)
			return
		}
		picture = prepared
	}

	if err := r.Covers.EmbedCoverArt(output, picture); err != nil {
		r.logger().Warn("cover art embed failed", "path", output, "error", err)
	}
}
