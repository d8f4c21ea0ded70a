package audio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/iD01tStore/MusicForge/internal/model"
)

// writeFLAC writes a minimal FLAC file: a zeroed STREAMINFO block, an
// optional Vorbis comment block and a single frame sync code.
func writeFLAC(t *testing.T, dir, name string, comments []string) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("fLaC")

	streamInfoHeader := byte(0x00)
	if comments == nil {
		streamInfoHeader = 0x80
	}
	buf.Write([]byte{streamInfoHeader, 0x00, 0x00, 34})
	buf.Write(make([]byte, 34))

	if comments != nil {
		body := (&vorbisComment{Vendor: "test", Comments: comments}).Marshal()
		n := len(body)
		buf.Write([]byte{0x80 | 4, byte(n >> 16), byte(n >> 8), byte(n)})
		buf.Write(body)
	}

	buf.Write([]byte{0xFF, 0xF8, 0x00, 0x00})

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write flac: %v", err)
	}
	return path
}

func writeFakeMP3(t *testing.T, dir, name string) string {
	t.Helper()
	frame := append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat(frame, 4), 0o644); err != nil {
		t.Fatalf("write mp3: %v", err)
	}
	return path
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestReadTags_Failures(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "noise.wav")
	if err := os.WriteFile(garbage, []byte("definitely not audio at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.mp3")},
		{"unsupported data", garbage},
		{"directory", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewTagger(nil).ReadTags(tt.path)
			if len(got) != len(model.TagFields) {
				t.Fatalf("ReadTags() = %v, want all standard fields", got)
			}
			for _, field := range model.TagFields {
				if got[field] != "" {
					t.Errorf("ReadTags()[%q] = %q, want empty", field, got[field])
				}
			}
		})
	}
}

func TestReadTags_FLAC(t *testing.T) {
	path := writeFLAC(t, t.TempDir(), "song.flac", []string{
		"TITLE=Blue", "ARTIST=Band", "ALBUM=Colours", "DATE=1999", "GENRE=Jazz", "TRACKNUMBER=4",
	})

	got := ReadTags(path)
	want := model.Tags{
		model.TagTitle:       "Blue",
		model.TagArtist:      "Band",
		model.TagAlbum:       "Colours",
		model.TagYear:        "1999",
		model.TagGenre:       "Jazz",
		model.TagTrackNumber: "4",
	}
	for field, value := range want {
		if got[field] != value {
			t.Errorf("ReadTags()[%q] = %q, want %q", field, got[field], value)
		}
	}
}

func TestReadTags_ZeroYearAndTrackAreEmpty(t *testing.T) {
	path := writeFLAC(t, t.TempDir(), "song.flac", []string{"TITLE=Only Title"})

	got := ReadTags(path)
	if got[model.TagYear] != "" || got[model.TagTrackNumber] != "" {
		t.Errorf("expected empty year and track, got %v", got)
	}
	if got[model.TagTitle] != "Only Title" {
		t.Errorf("title = %q", got[model.TagTitle])
	}
}

func TestWriteTags_FLACFallback(t *testing.T) {
	path := writeFLAC(t, t.TempDir(), "song.flac", []string{"ARTIST=Old Artist", "TITLE=Old"})

	err := WriteTags(path, model.Tags{
		model.TagTitle:  "New Title",
		model.TagArtist: "",
		model.TagYear:   "2020",
	})
	if err != nil {
		t.Fatalf("WriteTags() error = %v", err)
	}

	got := ReadTags(path)
	if got[model.TagTitle] != "New Title" {
		t.Errorf("title = %q, want %q", got[model.TagTitle], "New Title")
	}
	if got[model.TagArtist] != "Old Artist" {
		t.Errorf("empty value must not erase artist, got %q", got[model.TagArtist])
	}
	if got[model.TagYear] != "2020" {
		t.Errorf("year = %q, want 2020", got[model.TagYear])
	}
}

func TestWriteTags_FLACWithoutCommentBlock(t *testing.T) {
	path := writeFLAC(t, t.TempDir(), "bare.flac", nil)

	if err := WriteTags(path, model.Tags{model.TagAlbum: "Fresh"}); err != nil {
		t.Fatalf("WriteTags() error = %v", err)
	}
	if got := ReadTags(path)[model.TagAlbum]; got != "Fresh" {
		t.Errorf("album = %q, want Fresh", got)
	}
}

func TestWriteTags_MP3(t *testing.T) {
	path := writeFakeMP3(t, t.TempDir(), "song.mp3")

	err := WriteTags(path, model.Tags{
		model.TagTitle:       "Signal",
		model.TagArtist:      "Noise",
		model.TagTrackNumber: "7",
	})
	if err != nil {
		t.Fatalf("WriteTags() error = %v", err)
	}

	got := ReadTags(path)
	if got[model.TagTitle] != "Signal" || got[model.TagArtist] != "Noise" || got[model.TagTrackNumber] != "7" {
		t.Errorf("ReadTags() after write = %v", got)
	}
}

func TestWriteTags_BothWritersFail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteTags(path, model.Tags{model.TagTitle: "x"})
	if !errors.Is(err, ErrTagWrite) {
		t.Fatalf("WriteTags() error = %v, want ErrTagWrite", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "plain text" {
		t.Error("failed write must leave the file untouched")
	}
}

func TestEmbedCoverArt_FLAC(t *testing.T) {
	path := writeFLAC(t, t.TempDir(), "song.flac", []string{"TITLE=Cover Test"})
	cover := testImage(t)

	tagger := NewTagger(nil)
	if err := tagger.EmbedCoverArt(path, cover); err != nil {
		t.Fatalf("EmbedCoverArt() error = %v", err)
	}

	if got := tagger.CoverArt(path); !bytes.Equal(got, cover) {
		t.Errorf("CoverArt() returned %d bytes, want %d", len(got), len(cover))
	}
	if got := tagger.ReadTags(path)[model.TagTitle]; got != "Cover Test" {
		t.Errorf("embedding cover changed tags: title = %q", got)
	}
}

func TestEmbedCoverArt_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewTagger(nil).EmbedCoverArt(path, testImage(t)); err == nil {
		t.Fatal("expected error for unsupported container")
	}
	if err := NewTagger(nil).EmbedCoverArt(path, nil); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestCoverArt_None(t *testing.T) {
	path := writeFLAC(t, t.TempDir(), "song.flac", []string{"TITLE=x"})
	if got := CoverArt(path); got != nil {
		t.Errorf("CoverArt() = %d bytes, want nil", len(got))
	}
	if got := CoverArt(filepath.Join(t.TempDir(), "missing.flac")); got != nil {
		t.Error("CoverArt() on missing file should be nil")
	}
}

func TestVorbisComment_Set(t *testing.T) {
	vc := &vorbisComment{Comments: []string{"title=a", "ARTIST=b", "TITLE=c", "junk"}}
	vc.Set("TITLE", "d")

	want := []string{"ARTIST=b", "junk", "TITLE=d"}
	if !slices.Equal(vc.Comments, want) {
		t.Errorf("Comments = %v, want %v", vc.Comments, want)
	}

	parsed, err := parseVorbisComment(vc.Marshal())
	if err != nil {
		t.Fatalf("parseVorbisComment() error = %v", err)
	}
	if !slices.Equal(parsed.Comments, want) {
		t.Errorf("parsed = %v, want %v", parsed.Comments, want)
	}
}
