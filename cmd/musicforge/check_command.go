package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iD01tStore/MusicForge/internal/encoder"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether the encoder tools are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}

			statuses := encoder.Check(settings.Encoder.Path, settings.Encoder.ProbePath)
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{s.Name, yesNo(s.Available), s.Command, s.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Available", "Command", "Purpose"}, rows, nil))

			if !statuses[0].Available {
				return errors.New("ffmpeg is required: install it or set encoder.path or FFMPEG_PATH")
			}
			return nil
		},
	}
}
