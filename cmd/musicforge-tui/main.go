package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iD01tStore/MusicForge/internal/config"
	"github.com/iD01tStore/MusicForge/internal/logging"
	"github.com/iD01tStore/MusicForge/internal/tui"
)

func main() {
	var (
		configFlag = flag.String("config", "", "Path to config file")
		logFlag    = flag.String("log-file", "", "Write logs to this file")
	)
	flag.Parse()

	path := *configFlag
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	settings, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The alternate screen owns the terminal, so logs only go to a file.
	logger, closeLog, err := logging.New(logging.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Writer: io.Discard,
		File:   *logFlag,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.Run(ctx, settings, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
