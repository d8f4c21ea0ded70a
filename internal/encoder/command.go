package encoder

import (
	"math"
	"strconv"
	"strings"

	"github.com/iD01tStore/MusicForge/internal/model"
)

// Fixed filter stages.
const (
	denoiseFilter   = "afftdn=nr=12:nf=-25"
	trimFilter      = "silenceremove=start_periods=1:start_threshold=-45dB:start_silence=0.4"
	loudnormFilter  = "loudnorm=I=-14:TP=-1.5:LRA=11"
	defaultRate     = 44100
	defaultChannels = 2
)

type codecArgs map[model.Quality][]string

// codecTable maps each format to its per-quality codec arguments. The
// fallback entry is used for unknown quality tiers.
var codecTable = map[model.Format]struct {
	byQuality codecArgs
	fallback  []string
}{
	model.FormatMP3: {
		byQuality: codecArgs{
			model.QualityLow:      {"-b:a", "128k"},
			model.QualityMedium:   {"-b:a", "192k"},
			model.QualityHigh:     {"-b:a", "320k"},
			model.QualityLossless: {"-b:a", "320k"},
		},
		fallback: []string{"-b:a", "192k"},
	},
	model.FormatOGG: {
		byQuality: codecArgs{
			model.QualityLow:      {"-q:a", "3"},
			model.QualityMedium:   {"-q:a", "6"},
			model.QualityHigh:     {"-q:a", "9"},
			model.QualityLossless: {"-q:a", "10"},
		},
		fallback: []string{"-q:a", "6"},
	},
	model.FormatM4A: {
		byQuality: codecArgs{
			model.QualityLow:      {"-c:a", "aac", "-b:a", "128k"},
			model.QualityMedium:   {"-c:a", "aac", "-b:a", "192k"},
			model.QualityHigh:     {"-c:a", "aac", "-b:a", "256k"},
			model.QualityLossless: {"-c:a", "aac", "-b:a", "320k"},
		},
		fallback: []string{"-c:a", "aac", "-b:a", "192k"},
	},
	model.FormatWAV: {
		fallback: []string{"-acodec", "pcm_s16le"},
	},
	model.FormatFLAC: {
		fallback: []string{"-acodec", "flac", "-compression_level", "5"},
	},
}

// Synthesize builds the encoder argument list that converts input into
// output according to opts.
//
// The result is deterministic and never fails: out-of-range values fall
// back to defaults and unknown formats produce no codec arguments, leaving
// the encoder to infer the codec from the output extension.
//
// Argument order:
//
//	-y -i <input> -ac <channels> -ar <rate> [-af <filters>] [-metadata k=v ...] [codec args] <output>
func Synthesize(input, output string, opts model.ProcessingOptions) model.CommandPlan {
	plan := model.CommandPlan{
		"-y",
		"-i", input,
		"-ac", strconv.Itoa(channels(opts)),
		"-ar", strconv.Itoa(sampleRate(opts)),
	}

	if filters := FilterChain(opts); len(filters) > 0 {
		plan = append(plan, "-af", strings.Join(filters, ","))
	}

	for _, key := range opts.Tags.Keys() {
		if value := opts.Tags[key]; value != "" {
			plan = append(plan, "-metadata", key+"="+value)
		}
	}

	plan = append(plan, CodecArgs(opts.Format, opts.Quality)...)

	return append(plan, output)
}

// FilterChain returns the active filter stages in application order.
func FilterChain(opts model.ProcessingOptions) []string {
	var filters []string

	pitch := factor(opts.Pitch)
	speed := factor(opts.Speed)

	switch {
	case pitch != 1.0:
		rate := int(float64(sampleRate(opts)) * pitch)
		filters = append(filters, "asetrate="+strconv.Itoa(rate))
		if tempo := speed / pitch; tempo != 1.0 {
			filters = append(filters, "atempo="+formatFloat(tempo))
		}
	case speed != 1.0:
		filters = append(filters, "atempo="+formatFloat(speed))
	}

	if opts.NoiseReduction {
		filters = append(filters, denoiseFilter)
	}
	if opts.TrimSilence {
		filters = append(filters, trimFilter)
	}
	if opts.Normalize {
		filters = append(filters, loudnormFilter)
	}
	if opts.FadeIn > 0 {
		filters = append(filters, "afade=t=in:st=0:d="+formatFloat(opts.FadeIn))
	}

	// Trimming shifts the timeline by an unknown amount, so the fade-out
	// start can only be computed from the probed duration when it is off.
	if opts.FadeOut > 0 && opts.Duration > 0 && !opts.TrimSilence {
		start := math.Max(0, opts.Duration/speed-opts.FadeOut)
		filters = append(filters, "afade=t=out:st="+formatFloat(start)+":d="+formatFloat(opts.FadeOut))
	}

	return filters
}

// CodecArgs returns the codec arguments for a format and quality tier.
func CodecArgs(format model.Format, quality model.Quality) []string {
	entry, ok := codecTable[format]
	if !ok {
		return nil
	}
	args, ok := entry.byQuality[quality]
	if !ok {
		args = entry.fallback
	}
	return append([]string(nil), args...)
}

func sampleRate(opts model.ProcessingOptions) int {
	if opts.SampleRate <= 0 {
		return defaultRate
	}
	return opts.SampleRate
}

func channels(opts model.ProcessingOptions) int {
	if opts.Channels <= 0 {
		return defaultChannels
	}
	return opts.Channels
}

// factor treats non-positive multipliers as "unchanged".
func factor(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
