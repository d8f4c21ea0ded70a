package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/iD01tStore/MusicForge/internal/batch"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiDim    = "\033[2m"
)

// eventPrinter writes one line per batch event.
type eventPrinter struct {
	w        io.Writer
	verbose  bool
	colorize bool
}

func newEventPrinter(w io.Writer, verbose bool) *eventPrinter {
	return &eventPrinter{w: w, verbose: verbose, colorize: shouldColorize(w)}
}

func (p *eventPrinter) Print(event batch.Event) {
	level := event.Level()
	if level == batch.LevelVerbose && !p.verbose {
		return
	}

	var prefix, color string
	switch level {
	case batch.LevelError:
		prefix, color = "✗ ", ansiRed
	case batch.LevelWarning:
		prefix, color = "! ", ansiYellow
	case batch.LevelSuccess:
		prefix, color = "✓ ", ansiGreen
	case batch.LevelInfo:
		prefix, color = "› ", ansiBlue
	default:
		prefix, color = "  ", ansiDim
	}

	line := prefix + event.Message()
	if p.colorize {
		line = color + line + ansiReset
	}
	fmt.Fprintln(p.w, line)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
