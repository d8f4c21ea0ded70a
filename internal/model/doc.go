// Package model defines the core data structures shared by the queue,
// the command synthesizer and the batch scheduler.
//
// # Queue Items
//
// A QueueItem is one file waiting to be converted, together with the tags
// read from it when it was queued:
//
//	item := model.QueueItem{Path: "/music/in/song.wav", Tags: model.EmptyTags()}
//
// # Processing Options
//
// ProcessingOptions is the strongly-typed replacement for a loose option
// bag. Validate it at the input boundary:
//
//	opts := model.DefaultOptions()
//	opts.Format = model.FormatFLAC
//	opts.OutputDir = "/music/out"
//	if err := opts.Validate(); err != nil {
//	    return err
//	}
//
// Each task receives its own copy via WithTags, so options are never
// mutated once a batch has been submitted.
//
// # Results
//
// TaskResult carries the exit code and captured output of one encoder run.
// A non-zero exit code is a normal, reportable outcome.
package model
