// Package audio reads and writes audio metadata and generates playlists.
//
// # Tags
//
// Use the Tagger to read and write the standard tag fields:
//
//	tagger := audio.NewTagger(logger)
//	tags := tagger.ReadTags("/music/song.flac") // never fails
//	err := tagger.WriteTags("/music/song.mp3", model.Tags{model.TagGenre: "Jazz"})
//
// Reading supports MP3 (ID3v1/v2), MP4/M4A, FLAC and Ogg. Writing uses ID3v2
// for MP3 files and falls back to FLAC Vorbis comments; only non-empty
// fields are written.
//
// # Cover Art
//
//	picture := tagger.CoverArt("/music/song.mp3")
//	err := tagger.EmbedCoverArt("/music/out/song.mp3", picture)
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(playlist)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
