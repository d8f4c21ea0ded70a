package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Prober measures input duration with ffprobe.
type Prober struct {
	Binary string
}

// NewProber creates a Prober for binary.
func NewProber(binary string) *Prober {
	return &Prober{Binary: binary}
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the container duration of path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return parseDuration(output)
}

func parseDuration(output []byte) (float64, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}

	raw := strings.TrimSpace(result.Format.Duration)
	if raw == "" {
		return 0, errors.New("ffprobe: duration unavailable")
	}
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(duration) || duration < 0 {
		return 0, fmt.Errorf("ffprobe: invalid duration %q", raw)
	}
	return duration, nil
}
