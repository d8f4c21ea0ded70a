package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/iD01tStore/MusicForge/internal/model"
)

// ErrTimeout is returned when an encoder run exceeds the configured timeout
// and is killed.
var ErrTimeout = errors.New("encoder timed out")

// Invoker runs the encoder binary.
type Invoker struct {
	// Binary is the encoder executable.
	Binary string

	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

// NewInvoker creates an Invoker for binary with no timeout.
func NewInvoker(binary string) *Invoker {
	return &Invoker{Binary: binary}
}

// Process runs the encoder with plan and waits for it to exit.
//
// A non-zero exit status is reported through the returned TaskResult, not
// as an error. Errors are returned only when the encoder could not be
// launched (ErrEncoderNotFound), was killed after Timeout (ErrTimeout), or
// ctx was cancelled. On timeout the partial output is still returned.
func (i *Invoker) Process(ctx context.Context, plan model.CommandPlan) (model.TaskResult, error) {
	binary := strings.TrimSpace(i.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}

	runCtx := ctx
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, binary, plan...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	result := model.TaskResult{
		ExitCode: exitCode(cmd),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("encoder run: %w", ctxErr)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("%w after %s", ErrTimeout, i.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, nil
	}

	return result, fmt.Errorf("%w: %s: %v", ErrEncoderNotFound, binary, err)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
