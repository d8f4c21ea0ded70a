package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"io"
	"strings"

	"github.com/go-flac/go-flac"
	"github.com/iD01tStore/MusicForge/internal/model"
)

const vorbisVendor = "MusicForge"

// vorbisKeys maps standard fields to Vorbis comment field names.
var vorbisKeys = map[string]string{
	model.TagTitle:       "TITLE",
	model.TagArtist:      "ARTIST",
	model.TagAlbum:       "ALBUM",
	model.TagYear:        "DATE",
	model.TagGenre:       "GENRE",
	model.TagTrackNumber: "TRACKNUMBER",
}

func vorbisKey(field string) string {
	if key, ok := vorbisKeys[field]; ok {
		return key
	}
	return strings.ToUpper(field)
}

type vorbisComment struct {
	Vendor   string
	Comments []string
}

func parseVorbisComment(data []byte) (*vorbisComment, error) {
	r := bytes.NewReader(data)

	vendor, err := readLengthPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("vendor: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("comment count: %w", err)
	}

	comments := make([]string, 0, min(count, 1024))
	for i := uint32(0); i < count; i++ {
		comment, err := readLengthPrefixed(r)
		if err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}
		comments = append(comments, comment)
	}

	return &vorbisComment{Vendor: vendor, Comments: comments}, nil
}

func readLengthPrefixed(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int64(n) > int64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (vc *vorbisComment) Marshal() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, uint32(len(vc.Vendor)))
	buf.WriteString(vc.Vendor)

	binary.Write(buf, binary.LittleEndian, uint32(len(vc.Comments)))
	for _, c := range vc.Comments {
		binary.Write(buf, binary.LittleEndian, uint32(len(c)))
		buf.WriteString(c)
	}
	return buf.Bytes()
}

// Set replaces every comment named key with a single key=value entry.
func (vc *vorbisComment) Set(key, value string) {
	kept := vc.Comments[:0]
	for _, c := range vc.Comments {
		name, _, _ := strings.Cut(c, "=")
		if !strings.EqualFold(name, key) {
			kept = append(kept, c)
		}
	}
	vc.Comments = append(kept, key+"="+value)
}

func writeVorbis(path string, tags model.Tags) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return err
	}

	var block *flac.MetaDataBlock
	for _, b := range f.Meta {
		if b.Type == flac.VorbisComment {
			block = b
			break
		}
	}

	comments := &vorbisComment{Vendor: vorbisVendor}
	if block != nil {
		if comments, err = parseVorbisComment(block.Data); err != nil {
			return fmt.Errorf("parse vorbis comments: %w", err)
		}
	} else {
		block = &flac.MetaDataBlock{Type: flac.VorbisComment}
		f.Meta = append(f.Meta, block)
	}

	for _, key := range tags.Keys() {
		if value := tags[key]; value != "" {
			comments.Set(vorbisKey(key), value)
		}
	}
	block.Data = comments.Marshal()

	return f.Save(path)
}

type flacPicture struct {
	PictureType uint32
	MimeType    string
	Description string
	Width       uint32
	Height      uint32
	Depth       uint32
	Colors      uint32
	Data        []byte
}

func (p *flacPicture) Marshal() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, p.PictureType)
	binary.Write(buf, binary.BigEndian, uint32(len(p.MimeType)))
	buf.WriteString(p.MimeType)
	binary.Write(buf, binary.BigEndian, uint32(len(p.Description)))
	buf.WriteString(p.Description)
	binary.Write(buf, binary.BigEndian, p.Width)
	binary.Write(buf, binary.BigEndian, p.Height)
	binary.Write(buf, binary.BigEndian, p.Depth)
	binary.Write(buf, binary.BigEndian, p.Colors)
	binary.Write(buf, binary.BigEndian, uint32(len(p.Data)))
	buf.Write(p.Data)
	return buf.Bytes()
}

func embedFLACPicture(path string, data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode cover: %w", err)
	}

	f, err := flac.ParseFile(path)
	if err != nil {
		return err
	}

	kept := f.Meta[:0]
	for _, block := range f.Meta {
		if block.Type != flac.Picture {
			kept = append(kept, block)
		}
	}
	if len(kept) == 0 {
		return errors.New("flac file has no stream info")
	}

	pic := &flacPicture{
		PictureType: 3, // Front Cover
		MimeType:    mimeType(data),
		Description: "Cover",
		Width:       uint32(cfg.Width),
		Height:      uint32(cfg.Height),
		Depth:       24,
		Data:        data,
	}
	f.Meta = append(kept, &flac.MetaDataBlock{Type: flac.Picture, Data: pic.Marshal()})

	return f.Save(path)
}
