package model

import (
	"maps"
	"slices"
)

// Standard tag field names. These are the keys read from and written to
// audio files, and the keys passed to the encoder as metadata.
const (
	TagTitle       = "title"
	TagArtist      = "artist"
	TagAlbum       = "album"
	TagYear        = "year"
	TagGenre       = "genre"
	TagTrackNumber = "tracknumber"
)

// TagFields lists the standard fields in their canonical order.
var TagFields = []string{TagTitle, TagArtist, TagAlbum, TagYear, TagGenre, TagTrackNumber}

// Tags maps tag field names to values.
//
// A missing key and an empty value mean the same thing: the field is unset.
// Non-standard keys are allowed and are carried through to the encoder.
type Tags map[string]string

// EmptyTags returns a mapping with every standard field present and empty.
//
// This is what the tag reader returns when a file cannot be read.
func EmptyTags() Tags {
	tags := make(Tags, len(TagFields))
	for _, field := range TagFields {
		tags[field] = ""
	}
	return tags
}

// Keys returns the keys in deterministic order: the standard fields first,
// in canonical order, then any other keys sorted alphabetically.
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for _, field := range TagFields {
		if _, ok := t[field]; ok {
			keys = append(keys, field)
		}
	}

	var extra []string
	for key := range t {
		if !slices.Contains(TagFields, key) {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)

	return append(keys, extra...)
}

// Clone returns an independent copy of the tags. Cloning nil yields nil.
func (t Tags) Clone() Tags {
	return maps.Clone(t)
}

// Merge returns a new mapping holding t overlaid with every non-empty
// value from overrides. Empty override values never erase existing values.
func (t Tags) Merge(overrides Tags) Tags {
	merged := make(Tags, len(t)+len(overrides))
	maps.Copy(merged, t)
	for key, value := range overrides {
		if value != "" {
			merged[key] = value
		}
	}
	return merged
}

// Get returns the value for a field, or "" if unset.
func (t Tags) Get(field string) string {
	return t[field]
}
