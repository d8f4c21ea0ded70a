package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/iD01tStore/MusicForge/internal/queue"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		opts    optionFlags
		workers int
	)

	cmd := &cobra.Command{
		Use:   "convert <file-or-folder>...",
		Short: "Convert audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				settings.Workers.Max = workers
			}

			manager, err := ctx.newManager(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer manager.Close()

			added, err := manager.AddPaths(args...)
			if err != nil {
				return err
			}
			if added == 0 {
				return errors.New("no audio files found")
			}

			processing, err := opts.apply(cmd, manager.Options())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converting %d file(s) to %s in %s\n", added, processing.Format, processing.OutputDir)

			results, err := manager.Run(cmd.Context(), processing)
			if err != nil {
				return err
			}
			manager.Close()

			converted, failed := manager.GetProgress()
			fmt.Fprintf(out, "Converted %d/%d file(s)\n", converted, len(results))
			if failed > 0 {
				return exitError{code: 2, msg: fmt.Sprintf("%d file(s) failed", failed)}
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Concurrent conversions (0 uses one per CPU)")
	return cmd
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var opts optionFlags

	cmd := &cobra.Command{
		Use:   "plan <file-or-folder>...",
		Short: "Print the encoder commands without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.newManager(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer manager.Close()

			if _, err := manager.AddPaths(args...); err != nil {
				return err
			}

			processing, err := opts.apply(cmd, manager.Options())
			if err != nil {
				return err
			}
			planned, err := manager.Plan(processing)
			if err != nil {
				return err
			}
			if len(planned) == 0 {
				return errors.New("no audio files found")
			}

			rows := make([][]string, 0, len(planned))
			for i, p := range planned {
				rows = append(rows, []string{fmt.Sprint(i + 1), p.Item.Name(), filepath.Base(p.Output)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"#", "Input", "Output"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintln(out)
			for _, p := range planned {
				fmt.Fprintf(out, "ffmpeg %s\n", p.Plan)
			}
			return nil
		},
	}

	opts.bind(cmd)
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		opts   optionFlags
		settle time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <folder>",
		Short: "Convert audio files as they appear in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.newManager(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer manager.Close()

			processing, err := opts.apply(cmd, manager.Options())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s, press Ctrl+C to stop\n", args[0])
			return manager.Watch(cmd.Context(), args[0], settle, processing)
		},
	}

	opts.bind(cmd)
	cmd.Flags().DurationVar(&settle, "settle", queue.DefaultSettle, "How long a file must be unchanged before it is converted")
	return cmd
}
