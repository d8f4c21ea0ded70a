package encoder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrEncoderNotFound is returned when no encoder binary can be located or
// launched.
var ErrEncoderNotFound = errors.New("encoder not found")

// EnvPath names the environment variable that overrides encoder discovery.
const EnvPath = "FFMPEG_PATH"

// AssetsDir is the bundled-binaries directory searched next to the executable.
const AssetsDir = "assets_music_forge"

// Locate resolves the ffmpeg binary.
//
// Resolution order:
//  1. override, then $FFMPEG_PATH, when either names an existing file
//  2. ffmpeg, bin/ffmpeg and assets_music_forge/ffmpeg under the
//     executable's directory
//  3. ffmpeg on PATH
//
// When nothing is found, the bare name "ffmpeg" is returned together with
// ErrEncoderNotFound so callers can still attempt a launch.
func Locate(override string) (string, error) {
	return locate("ffmpeg", override, executableDir())
}

// LocateProbe resolves ffprobe with the same rules as Locate, except that
// the environment override is not consulted.
func LocateProbe(override string) (string, error) {
	return locate("ffprobe", override, executableDir())
}

func locate(name, override, baseDir string) (string, error) {
	overrides := []string{override}
	if name == "ffmpeg" {
		overrides = append(overrides, os.Getenv(EnvPath))
	}
	for _, candidate := range overrides {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && isFile(candidate) {
			return absolute(candidate), nil
		}
	}

	if baseDir != "" {
		for _, candidate := range installCandidates(name, baseDir) {
			if isFile(candidate) {
				return absolute(candidate), nil
			}
		}
	}

	if resolved, err := exec.LookPath(name); err == nil {
		return resolved, nil
	}

	return name, fmt.Errorf("%w: %s", ErrEncoderNotFound, name)
}

func installCandidates(name, baseDir string) []string {
	names := []string{name}
	if runtime.GOOS == "windows" {
		names = []string{name + ".exe", name}
	}

	var candidates []string
	for _, n := range names {
		candidates = append(candidates,
			filepath.Join(baseDir, n),
			filepath.Join(baseDir, "bin", n),
			filepath.Join(baseDir, AssetsDir, n),
		)
	}
	return candidates
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Status reports the availability of an external binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// Check reports where ffmpeg and ffprobe resolve to. A missing ffprobe only
// disables fade-out, so callers typically warn rather than abort.
func Check(ffmpegOverride, ffprobeOverride string) []Status {
	results := make([]Status, 0, 2)

	ffmpeg, err := Locate(ffmpegOverride)
	results = append(results, status("FFmpeg", "Converts and tags audio", ffmpeg, err))

	ffprobe, err := LocateProbe(ffprobeOverride)
	results = append(results, status("FFprobe", "Measures duration for fade-out", ffprobe, err))

	return results
}

func status(name, description, command string, err error) Status {
	s := Status{
		Name:        name,
		Command:     command,
		Description: description,
		Available:   err == nil,
	}
	if err != nil {
		s.Detail = fmt.Sprintf("binary %q not found", command)
	}
	return s
}
