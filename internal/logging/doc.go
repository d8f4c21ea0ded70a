// Package logging builds the slog loggers used across MusicForge.
//
// Two formats are supported: "console" writes aligned, human-readable lines
// and "json" writes one JSON object per record. Components receive a
// *slog.Logger and never construct their own.
package logging
