package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions is returned by ProcessingOptions.Validate.
var ErrInvalidOptions = errors.New("invalid processing options")

// Format selects the output codec and container.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
	FormatM4A  Format = "m4a"
)

// Formats lists every supported output format.
var Formats = []Format{FormatMP3, FormatWAV, FormatFLAC, FormatOGG, FormatM4A}

// ParseFormat converts a string to a Format. The second return value is
// false for unknown formats.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, true
		}
	}
	return f, false
}

// Extension returns the output file extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Quality selects a codec-specific bitrate or quality tier.
type Quality string

const (
	QualityLow      Quality = "low"
	QualityMedium   Quality = "medium"
	QualityHigh     Quality = "high"
	QualityLossless Quality = "lossless"
)

// Qualities lists every supported quality tier.
var Qualities = []Quality{QualityLow, QualityMedium, QualityHigh, QualityLossless}

// ParseQuality converts a string to a Quality. The second return value is
// false for unknown tiers.
func ParseQuality(s string) (Quality, bool) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Qualities {
		if q == known {
			return q, true
		}
	}
	return q, false
}

// Accepted ranges for numeric options.
const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxRateFactor = 4.0

	// The encoder's tempo filter rejects factors outside this range.
	MinTempo = 0.5
	MaxTempo = 100.0
)

// ProcessingOptions configures how every file in a batch is processed.
//
// Options are constructed once per batch submission and copied into each
// task. The synthesizer tolerates invalid values by falling back to
// defaults; Validate rejects them earlier, at the input boundary.
type ProcessingOptions struct {
	// Format is the output codec/container.
	Format Format

	// Quality maps to a bitrate or quality index for the chosen format.
	Quality Quality

	// SampleRate is the output sample rate in Hz.
	SampleRate int

	// Channels is the output channel count (1 or 2).
	Channels int

	// Normalize enables loudness normalization.
	Normalize bool

	// TrimSilence removes leading silence.
	TrimSilence bool

	// NoiseReduction enables the denoise stage.
	NoiseReduction bool

	// FadeIn is the fade-in length in seconds. Zero disables it.
	FadeIn float64

	// FadeOut is the fade-out length in seconds. It only takes effect when
	// Duration is known.
	FadeOut float64

	// Pitch is a pitch multiplier. 1.0 leaves pitch unchanged.
	Pitch float64

	// Speed is a playback speed multiplier. 1.0 leaves speed unchanged.
	Speed float64

	// OutputDir is the destination directory. It is created if absent.
	OutputDir string

	// Tags are metadata overrides merged into each file's own tags.
	Tags Tags

	// Duration is the probed input duration in seconds, or zero when
	// unknown. It is filled in per task and never set by users.
	Duration float64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		Format:     FormatMP3,
		Quality:    QualityHigh,
		SampleRate: 44100,
		Channels:   2,
		Pitch:      1.0,
		Speed:      1.0,
	}
}

// Validate checks every option against its accepted range.
//
// All problems are reported together; the returned error wraps
// ErrInvalidOptions.
func (o ProcessingOptions) Validate() error {
	var problems []string

	if _, ok := ParseFormat(string(o.Format)); !ok {
		problems = append(problems, fmt.Sprintf("unknown format %q", o.Format))
	}
	if _, ok := ParseQuality(string(o.Quality)); !ok {
		problems = append(problems, fmt.Sprintf("unknown quality %q", o.Quality))
	}
	if o.SampleRate < MinSampleRate || o.SampleRate > MaxSampleRate {
		problems = append(problems, fmt.Sprintf("sample rate %d outside %d-%d Hz", o.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if o.Channels != 1 && o.Channels != 2 {
		problems = append(problems, fmt.Sprintf("channels must be 1 or 2, got %d", o.Channels))
	}
	if o.FadeIn < 0 {
		problems = append(problems, "fade in must not be negative")
	}
	if o.FadeOut < 0 {
		problems = append(problems, "fade out must not be negative")
	}
	pitchOK := o.Pitch > 0 && o.Pitch <= MaxRateFactor
	speedOK := o.Speed > 0 && o.Speed <= MaxRateFactor
	if !pitchOK {
		problems = append(problems, fmt.Sprintf("pitch must be in (0, %g], got %g", MaxRateFactor, o.Pitch))
	}
	if !speedOK {
		problems = append(problems, fmt.Sprintf("speed must be in (0, %g], got %g", MaxRateFactor, o.Speed))
	}
	if pitchOK && speedOK {
		if tempo := o.Speed / o.Pitch; tempo < MinTempo || tempo > MaxTempo {
			problems = append(problems, fmt.Sprintf("speed/pitch ratio %g outside %g-%g", tempo, MinTempo, MaxTempo))
		}
	}
	if strings.TrimSpace(o.OutputDir) == "" {
		problems = append(problems, "output directory must be set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(problems, "; "))
	}
	return nil
}

// Clone returns a deep copy of the options.
func (o ProcessingOptions) Clone() ProcessingOptions {
	o.Tags = o.Tags.Clone()
	return o
}

// WithTags returns a copy of the options whose Tags are fileTags overlaid
// with the non-empty overrides from o.Tags. The receiver is not modified.
func (o ProcessingOptions) WithTags(fileTags Tags) ProcessingOptions {
	task := o.Clone()
	task.Tags = fileTags.Merge(o.Tags)
	return task
}
