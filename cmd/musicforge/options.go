package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iD01tStore/MusicForge/internal/model"
)

// optionFlags binds a flag to every ProcessingOptions field. Flags that are
// not given leave the configured value in place.
type optionFlags struct {
	format         string
	quality        string
	sampleRate     int
	channels       int
	normalize      bool
	trimSilence    bool
	noiseReduction bool
	fadeIn         float64
	fadeOut        float64
	pitch          float64
	speed          float64
	outputDir      string
	tags           []string
}

func (f *optionFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.format, "format", "f", "", "Output format (mp3, wav, flac, ogg, m4a)")
	flags.StringVarP(&f.quality, "quality", "q", "", "Quality tier (low, medium, high, lossless)")
	flags.IntVar(&f.sampleRate, "sample-rate", 0, "Output sample rate in Hz")
	flags.IntVar(&f.channels, "channels", 0, "Output channels (1 or 2)")
	flags.BoolVar(&f.normalize, "normalize", false, "Normalize loudness")
	flags.BoolVar(&f.trimSilence, "trim-silence", false, "Trim leading silence")
	flags.BoolVar(&f.noiseReduction, "noise-reduction", false, "Apply noise reduction")
	flags.Float64Var(&f.fadeIn, "fade-in", 0, "Fade-in length in seconds")
	flags.Float64Var(&f.fadeOut, "fade-out", 0, "Fade-out length in seconds")
	flags.Float64Var(&f.pitch, "pitch", 1, "Pitch factor")
	flags.Float64Var(&f.speed, "speed", 1, "Speed factor")
	flags.StringVarP(&f.outputDir, "output", "o", "", "Output directory")
	flags.StringArrayVar(&f.tags, "tag", nil, "Tag override as key=value (repeatable)")
}

// apply overlays the changed flags on opts.
func (f *optionFlags) apply(cmd *cobra.Command, opts model.ProcessingOptions) (model.ProcessingOptions, error) {
	changed := cmd.Flags().Changed

	if changed("format") {
		opts.Format = model.Format(strings.ToLower(f.format))
	}
	if changed("quality") {
		opts.Quality = model.Quality(strings.ToLower(f.quality))
	}
	if changed("sample-rate") {
		opts.SampleRate = f.sampleRate
	}
	if changed("channels") {
		opts.Channels = f.channels
	}
	if changed("normalize") {
		opts.Normalize = f.normalize
	}
	if changed("trim-silence") {
		opts.TrimSilence = f.trimSilence
	}
	if changed("noise-reduction") {
		opts.NoiseReduction = f.noiseReduction
	}
	if changed("fade-in") {
		opts.FadeIn = f.fadeIn
	}
	if changed("fade-out") {
		opts.FadeOut = f.fadeOut
	}
	if changed("pitch") {
		opts.Pitch = f.pitch
	}
	if changed("speed") {
		opts.Speed = f.speed
	}
	if changed("output") {
		opts.OutputDir = f.outputDir
	}

	tags, err := parseTagArgs(f.tags)
	if err != nil {
		return opts, err
	}
	opts.Tags = opts.Tags.Merge(tags)

	return opts, opts.Validate()
}

// parseTagArgs parses key=value pairs. Keys are lower-cased.
func parseTagArgs(args []string) (model.Tags, error) {
	tags := model.Tags{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q: expected key=value", arg)
		}
		tags[key] = strings.TrimSpace(value)
	}
	return tags, nil
}
