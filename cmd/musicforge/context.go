package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/iD01tStore/MusicForge/internal/app"
	"github.com/iD01tStore/MusicForge/internal/batch"
	"github.com/iD01tStore/MusicForge/internal/config"
	"github.com/iD01tStore/MusicForge/internal/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	verbose   bool
}

type commandContext struct {
	flags *globalFlags

	settingsOnce sync.Once
	settings     *config.Settings
	settingsPath string
	settingsErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) configPath() (string, error) {
	if path := strings.TrimSpace(c.flags.config); path != "" {
		return config.ExpandPath(path)
	}
	return config.DefaultPath()
}

func (c *commandContext) ensureSettings() (*config.Settings, error) {
	c.settingsOnce.Do(func() {
		path, err := c.configPath()
		if err != nil {
			c.settingsErr = err
			return
		}
		settings, err := config.Load(path)
		if err != nil {
			c.settingsErr = err
			return
		}
		if c.flags.logLevel != "" {
			settings.Logging.Level = c.flags.logLevel
		}
		if c.flags.logFormat != "" {
			settings.Logging.Format = c.flags.logFormat
		}
		c.settings = settings
		c.settingsPath = path
	})
	return c.settings, c.settingsErr
}

func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	settings, err := c.ensureSettings()
	if err != nil {
		return nil, err
	}
	logger, _, err := logging.NewFromSettings(settings, w)
	return logger, err
}

// newManager builds a Manager whose events are printed to the command's
// output.
func (c *commandContext) newManager(ctx context.Context, cmd *cobra.Command) (*app.Manager, error) {
	settings, err := c.ensureSettings()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	printer := newEventPrinter(cmd.OutOrStdout(), c.flags.verbose)
	return app.NewManager(ctx, settings, logger, func(event batch.Event) {
		printer.Print(event)
	}), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
