package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/iD01tStore/MusicForge/internal/model"
)

// ErrTagWrite is returned when no writer could store the tags.
var ErrTagWrite = errors.New("tag write failed")

var errUnsupported = errors.New("unsupported file type")

// Tagger reads and writes audio file metadata.
//
// Reading goes through dhowden/tag, which understands ID3v1/v2, MP4, FLAC
// and Ogg. Writing tries ID3v2 first and falls back to FLAC Vorbis comments;
// a write succeeds when either writer succeeds.
//
// Example:
//
//	tagger := NewTagger(logger)
//	tags := tagger.ReadTags("/music/song.mp3")
//	tags[model.TagGenre] = "Jazz"
//	if err := tagger.WriteTags("/music/song.mp3", tags); err != nil {
//	    logger.Warn("tagging failed", "error", err)
//	}
type Tagger struct {
	logger *slog.Logger
}

// NewTagger creates a Tagger. A nil logger uses slog.Default().
func NewTagger(logger *slog.Logger) *Tagger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tagger{logger: logger}
}

var defaultTagger = NewTagger(nil)

// ReadTags reads path's tags with the default tagger.
func ReadTags(path string) model.Tags { return defaultTagger.ReadTags(path) }

// WriteTags writes tags to path with the default tagger.
func WriteTags(path string, tags model.Tags) error { return defaultTagger.WriteTags(path, tags) }

// CoverArt returns path's embedded picture with the default tagger.
func CoverArt(path string) []byte { return defaultTagger.CoverArt(path) }

// ReadTags returns the standard tag fields of path.
//
// It never fails: a missing, unsupported or corrupt file yields
// model.EmptyTags(), and the reason is logged at debug level. Year and track
// number are rendered as decimal strings and left empty when zero.
func (t *Tagger) ReadTags(path string) model.Tags {
	tags := model.EmptyTags()

	meta, err := readMetadata(path)
	if err != nil {
		t.logger.Debug("tag read failed", "path", path, "error", err)
		return tags
	}

	tags[model.TagTitle] = strings.TrimSpace(meta.Title())
	tags[model.TagArtist] = strings.TrimSpace(meta.Artist())
	tags[model.TagAlbum] = strings.TrimSpace(meta.Album())
	tags[model.TagGenre] = strings.TrimSpace(meta.Genre())
	if year := meta.Year(); year != 0 {
		tags[model.TagYear] = strconv.Itoa(year)
	}
	if track, _ := meta.Track(); track != 0 {
		tags[model.TagTrackNumber] = strconv.Itoa(track)
	}

	return tags
}

// CoverArt returns the embedded picture of path, or nil when there is none
// or the file cannot be read.
func (t *Tagger) CoverArt(path string) []byte {
	meta, err := readMetadata(path)
	if err != nil {
		t.logger.Debug("cover art read failed", "path", path, "error", err)
		return nil
	}
	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil
	}
	return pic.Data
}

func readMetadata(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return tag.ReadFrom(f)
}

// WriteTags stores the non-empty fields of tags in path.
//
// The ID3v2 writer handles MP3 files; if it fails, FLAC Vorbis comments are
// tried. The returned error wraps ErrTagWrite and joins both causes; it is
// nil when either writer succeeded.
func (t *Tagger) WriteTags(path string, tags model.Tags) error {
	id3Err := writeID3(path, tags)
	if id3Err == nil {
		t.logger.Debug("tags written", "path", path, "writer", "id3v2")
		return nil
	}

	vorbisErr := writeVorbis(path, tags)
	if vorbisErr == nil {
		t.logger.Debug("tags written", "path", path, "writer", "vorbis")
		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrTagWrite, filepath.Base(path), errors.Join(
		fmt.Errorf("id3v2: %w", id3Err),
		fmt.Errorf("vorbis: %w", vorbisErr),
	))
}

// EmbedCoverArt attaches image as the front cover of an MP3 or FLAC file,
// replacing any existing cover.
func (t *Tagger) EmbedCoverArt(path string, image []byte) error {
	if len(image) == 0 {
		return errors.New("embed cover art: empty image")
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		err = embedID3Picture(path, image)
	case ".flac":
		err = embedFLACPicture(path, image)
	default:
		err = errUnsupported
	}
	if err != nil {
		return fmt.Errorf("embed cover art in %s: %w", filepath.Base(path), err)
	}

	t.logger.Debug("cover art embedded", "path", path, "bytes", len(image))
	return nil
}

// id3Frames maps standard fields to their ID3v2.4 text frames.
var id3Frames = map[string]string{
	model.TagTitle:       "TIT2",
	model.TagArtist:      "TPE1",
	model.TagAlbum:       "TALB",
	model.TagYear:        "TDRC",
	model.TagGenre:       "TCON",
	model.TagTrackNumber: "TRCK",
}

func writeID3(path string, tags model.Tags) error {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return errUnsupported
	}

	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer id3.Close()

	for _, field := range model.TagFields {
		value := tags[field]
		if value == "" {
			continue
		}
		frame := id3Frames[field]
		id3.DeleteFrames(frame)
		id3.AddTextFrame(frame, id3v2.EncodingUTF8, value)
	}

	return id3.Save()
}

func embedID3Picture(path string, image []byte) error {
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer id3.Close()

	// Remove any existing cover pictures
	id3.DeleteFrames(id3.CommonID("Attached picture"))

	id3.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    mimeType(image),
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     image,
	})

	return id3.Save()
}

func mimeType(image []byte) string {
	if mime := http.DetectContentType(image); strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}
