package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/iD01tStore/MusicForge/internal/audio"
	ioutils "github.com/iD01tStore/MusicForge/internal/io"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "tags <file>",
		Short: "Show or edit the tags of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			tagger := audio.NewTagger(logger)

			if len(set) > 0 {
				updates, err := parseTagArgs(set)
				if err != nil {
					return err
				}
				if err := tagger.WriteTags(path, tagger.ReadTags(path).Merge(updates)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d tag(s)\n", len(updates))
			}

			tags := tagger.ReadTags(path)
			rows := make([][]string, 0, len(tags))
			for _, key := range tags.Keys() {
				rows = append(rows, []string{key, tags[key]})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
			fmt.Fprintln(out, renderTable([]string{"Tag", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&set, "set", nil, "Write a tag as key=value (repeatable)")
	return cmd
}

func newCoverCommand(ctx *commandContext) *cobra.Command {
	var (
		maxSize int
		jpeg    bool
	)

	cmd := &cobra.Command{
		Use:   "cover <file> <image>",
		Short: "Extract the embedded cover art",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			picture := audio.NewTagger(logger).CoverArt(args[0])
			if picture == nil {
				return errors.New("no cover art found")
			}

			images := ioutils.NewImageService()
			if maxSize > 0 {
				if picture, err = images.PrepareCover(cmd.Context(), picture, maxSize); err != nil {
					return err
				}
			} else if jpeg {
				if picture, err = images.ConvertToJPEG(cmd.Context(), picture); err != nil {
					return err
				}
			}

			if err := ioutils.WriteFile(cmd.Context(), args[1], picture); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", args[1], humanize.Bytes(uint64(len(picture))))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSize, "max-size", 0, "Resize to fit within this many pixels and convert to JPEG")
	cmd.Flags().BoolVar(&jpeg, "jpeg", false, "Convert to JPEG without resizing")
	return cmd
}
