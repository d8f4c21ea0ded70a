package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iD01tStore/MusicForge/internal/audio"
	"github.com/iD01tStore/MusicForge/internal/model"
	"github.com/pelletier/go-toml/v2"
)

// Encoder locates the external tools and bounds their run time.
type Encoder struct {
	Path        string `toml:"path"`
	ProbePath   string `toml:"ffprobe_path"`
	TaskTimeout int    `toml:"task_timeout_seconds"` // 0 disables the timeout
}

// Workers sizes the conversion pool.
type Workers struct {
	Max int `toml:"max"` // 0 uses one worker per CPU
}

// Output selects the destination and encoding of converted files.
type Output struct {
	Dir        string `toml:"dir"`
	Format     string `toml:"format"`
	Quality    string `toml:"quality"`
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
}

// Effects holds the audio filters applied during conversion.
type Effects struct {
	Normalize      bool    `toml:"normalize"`
	TrimSilence    bool    `toml:"trim_silence"`
	NoiseReduction bool    `toml:"noise_reduction"`
	FadeIn         float64 `toml:"fade_in"`
	FadeOut        float64 `toml:"fade_out"`
	Pitch          float64 `toml:"pitch"`
	Speed          float64 `toml:"speed"`
}

// Extras holds post-conversion steps.
type Extras struct {
	EmbedCoverArt   bool   `toml:"embed_cover_art"`
	CoverArtMaxSize int    `toml:"cover_art_max_size"`
	CreatePlaylist  bool   `toml:"create_playlist"`
	PlaylistFormat  string `toml:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended     bool   `toml:"m3u_extended"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// Settings holds all configuration options.
type Settings struct {
	Encoder Encoder `toml:"encoder"`
	Workers Workers `toml:"workers"`
	Output  Output  `toml:"output"`
	Effects Effects `toml:"effects"`
	Extras  Extras  `toml:"extras"`
	Logging Logging `toml:"logging"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	opts := model.DefaultOptions()
	return &Settings{
		Output: Output{
			Dir:        filepath.Join(homeDir, "Music", "MusicForge"),
			Format:     string(opts.Format),
			Quality:    string(opts.Quality),
			SampleRate: opts.SampleRate,
			Channels:   opts.Channels,
		},
		Effects: Effects{
			Pitch: opts.Pitch,
			Speed: opts.Speed,
		},
		Extras: Extras{
			EmbedCoverArt:   true,
			CoverArtMaxSize: 1000,
			PlaylistFormat:  "m3u",
			M3UExtended:     true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the default settings file location.
func DefaultPath() (string, error) {
	return ExpandPath("~/.config/musicforge/config.toml")
}

// Load reads settings from a TOML file. A missing file yields the defaults.
// Keys absent from the file keep their default values.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := settings.normalize(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings to a TOML file.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// String renders the settings as TOML.
func (s *Settings) String() string {
	data, err := toml.Marshal(s)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

func (s *Settings) normalize() error {
	var err error
	if s.Output.Dir, err = ExpandPath(s.Output.Dir); err != nil {
		return err
	}
	if s.Encoder.Path, err = ExpandPath(s.Encoder.Path); err != nil {
		return err
	}
	if s.Encoder.ProbePath, err = ExpandPath(s.Encoder.ProbePath); err != nil {
		return err
	}
	s.Output.Format = strings.ToLower(strings.TrimSpace(s.Output.Format))
	s.Output.Quality = strings.ToLower(strings.TrimSpace(s.Output.Quality))
	s.Extras.PlaylistFormat = strings.ToLower(strings.TrimSpace(s.Extras.PlaylistFormat))
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	s.Logging.Format = strings.ToLower(strings.TrimSpace(s.Logging.Format))
	return nil
}

// Validate ensures the settings are usable.
func (s *Settings) Validate() error {
	if s.Encoder.TaskTimeout < 0 {
		return errors.New("encoder.task_timeout_seconds must not be negative")
	}
	if s.Workers.Max < 0 {
		return errors.New("workers.max must not be negative")
	}
	if s.Extras.CoverArtMaxSize < 0 {
		return errors.New("extras.cover_art_max_size must not be negative")
	}
	if _, ok := audio.ParsePlaylistFormat(s.Extras.PlaylistFormat); !ok {
		return fmt.Errorf("extras.playlist_format %q must be one of m3u, pls, wpl, zpl", s.Extras.PlaylistFormat)
	}
	switch s.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", s.Logging.Format)
	}
	return s.ProcessingOptions().Validate()
}

// ProcessingOptions converts settings to the batch options template.
func (s *Settings) ProcessingOptions() model.ProcessingOptions {
	return model.ProcessingOptions{
		Format:         model.Format(s.Output.Format),
		Quality:        model.Quality(s.Output.Quality),
		SampleRate:     s.Output.SampleRate,
		Channels:       s.Output.Channels,
		Normalize:      s.Effects.Normalize,
		TrimSilence:    s.Effects.TrimSilence,
		NoiseReduction: s.Effects.NoiseReduction,
		FadeIn:         s.Effects.FadeIn,
		FadeOut:        s.Effects.FadeOut,
		Pitch:          s.Effects.Pitch,
		Speed:          s.Effects.Speed,
		OutputDir:      s.Output.Dir,
		Tags:           model.Tags{},
	}
}

// Timeout returns the per-task encoder timeout, zero when disabled.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.Encoder.TaskTimeout) * time.Second
}

// PlaylistFormat returns the configured playlist format, or false when
// playlists are disabled.
func (s *Settings) PlaylistFormat() (audio.PlaylistFormat, bool) {
	if !s.Extras.CreatePlaylist {
		return audio.FormatM3U, false
	}
	return audio.ParsePlaylistFormat(s.Extras.PlaylistFormat)
}

// ExpandPath resolves a leading ~ and makes the path absolute. Empty paths
// are returned unchanged.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
