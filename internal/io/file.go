package ioutils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/iD01tStore/MusicForge/internal/model"
)

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	repeatedSpace = regexp.MustCompile(`\s+`)
)

// WriteFile writes data to path, creating or truncating it with mode 0644.
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")     // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")           // Returns "Track"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755. An existing directory is not an error.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath returns the conversion target for input: the input's stem with
// the format's extension, inside outputDir.
func OutputPath(outputDir, input string, format model.Format) string {
	return filepath.Join(outputDir, Stem(input)+format.Extension())
}

// OutputPaths returns one output path per input, in input order.
//
// Inputs whose stems collide get a numeric suffix ("song (2).mp3") so that
// no two tasks in a batch write the same file, and an output that would
// overwrite its own input is renamed the same way.
func OutputPaths(outputDir string, inputs []string, format model.Format) []string {
	return ReserveOutputPaths(outputDir, inputs, format, nil)
}

// ReserveOutputPaths works like OutputPaths but also avoids every path in
// reserved, keyed by PathKey. The chosen outputs are added to reserved when
// it is non-nil.
func ReserveOutputPaths(outputDir string, inputs []string, format model.Format, reserved map[string]bool) []string {
	if reserved == nil {
		reserved = make(map[string]bool, len(inputs))
	}
	sources := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		sources[PathKey(in)] = true
	}

	outputs := make([]string, len(inputs))
	for i, in := range inputs {
		stem := Stem(in)
		candidate := filepath.Join(outputDir, stem+format.Extension())
		for n := 2; reserved[PathKey(candidate)] || sources[PathKey(candidate)]; n++ {
			candidate = filepath.Join(outputDir, fmt.Sprintf("%s (%d)%s", stem, n, format.Extension()))
		}
		reserved[PathKey(candidate)] = true
		outputs[i] = candidate
	}
	return outputs
}

// WriteNewFile writes data to path without replacing an existing file. When
// path is taken, "name (2).ext", "name (3).ext" and so on are tried in turn.
// It returns the path that was written.
func WriteNewFile(ctx context.Context, path string, data []byte) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	candidate := path
	for n := 2; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return candidate, f.Close()
	}
}

// PathKey returns the absolute, cleaned form of path used to compare paths.
func PathKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}
