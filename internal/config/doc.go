// Package config provides configuration management for MusicForge.
//
// Settings are stored as TOML with one table per concern:
//
//	[encoder]   ffmpeg/ffprobe paths and the per-task timeout
//	[workers]   pool size
//	[output]    destination directory, format, quality, rate, channels
//	[effects]   normalize, trim, noise reduction, fades, pitch, speed
//	[extras]    cover art and playlist generation
//	[logging]   level and format
//
// # Loading from File
//
//	settings, err := config.Load(path)
//	if err != nil {
//	    // A missing file is not an error; defaults are returned.
//	}
//	opts := settings.ProcessingOptions()
//
// # Saving Settings
//
//	settings.Output.Format = "flac"
//	err := settings.Save(path)
package config
