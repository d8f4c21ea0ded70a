// Package ioutils provides file system and image processing utilities.
//
// # Output Paths
//
// Converted files keep the input's stem and take the target format's
// extension:
//
//	out := ioutils.OutputPath("/music/out", "/music/in/song.flac", model.FormatMP3)
//	// "/music/out/song.mp3"
//
// OutputPaths does the same for a whole batch and disambiguates collisions.
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Image Processing
//
// The ImageService prepares cover art before it is embedded or extracted:
//
//	svc := ioutils.NewImageService()
//	cover, _ := svc.PrepareCover(ctx, imageData, 500)
package ioutils
