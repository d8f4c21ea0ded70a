package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/iD01tStore/MusicForge/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string

	// Writer receives log output. Defaults to stderr.
	Writer io.Writer

	// File, when set, also receives every log line.
	File string
}

// New constructs a slog logger using the provided options. The returned
// close function releases the log file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(ParseLevel(opts.Level))

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	closeFn := func() error { return nil }

	if strings.TrimSpace(opts.File) != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writer = io.MultiWriter(writer, file)
		closeFn = file.Close
	}

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: levelVar})
	case "console", "":
		handler = newConsoleHandler(writer, levelVar)
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(handler), closeFn, nil
}

// NewFromSettings creates a logger from the [logging] settings table.
func NewFromSettings(settings *config.Settings, w io.Writer) (*slog.Logger, func() error, error) {
	if settings == nil {
		return New(Options{Level: "info", Format: "console", Writer: w})
	}
	return New(Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Writer: w,
	})
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
