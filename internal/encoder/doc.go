// Package encoder turns processing options into ffmpeg invocations and runs
// them.
//
// Synthesize is pure: the same input, output and options always produce the
// same argument list. Invoker launches the binary found by Locate and
// reports its exit status; Prober asks ffprobe for a file's duration, which
// the fade-out filter needs.
package encoder
