package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines for duration/title info.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	FormatZPL
)

// ParsePlaylistFormat converts a settings value ("m3u", "pls", "wpl",
// "zpl") to a PlaylistFormat. Unknown values map to M3U and report false.
func ParsePlaylistFormat(s string) (PlaylistFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m3u", "":
		return FormatM3U, true
	case "pls":
		return FormatPLS, true
	case "wpl":
		return FormatWPL, true
	case "zpl":
		return FormatZPL, true
	default:
		return FormatM3U, false
	}
}

// Extension returns the file extension for the format, including the dot.
func (f PlaylistFormat) Extension() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	case FormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// PlaylistEntry is one converted file.
type PlaylistEntry struct {
	// Path of the file. Only the base name is written.
	Path   string
	Title  string
	Artist string

	// Duration in seconds; zero when unknown.
	Duration float64
}

func (e PlaylistEntry) displayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	base := filepath.Base(e.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// seconds returns the duration rounded down, or -1 when unknown.
func (e PlaylistEntry) seconds() int {
	if e.Duration <= 0 {
		return -1
	}
	return int(e.Duration)
}

// Playlist is a named, ordered list of entries.
type Playlist struct {
	Title   string
	Entries []PlaylistEntry
}

// PlaylistCreator generates playlist files in various formats.
//
// Entry paths are written relative (just the file name), assuming the
// playlist is saved next to the files.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist(playlist)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// Song Title.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator. extended only affects
// M3U output.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// Format returns the creator's output format.
func (p *PlaylistCreator) Format() PlaylistFormat {
	return p.format
}

// CreatePlaylist renders the playlist in the creator's format.
func (p *PlaylistCreator) CreatePlaylist(playlist Playlist) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(playlist)
	case FormatWPL:
		return p.createWPL(playlist)
	case FormatZPL:
		return p.createZPL(playlist)
	default:
		return p.createM3U(playlist)
	}
}

func (p *PlaylistCreator) createM3U(playlist Playlist) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, entry := range playlist.Entries {
		if p.extended {
			label := entry.displayTitle()
			if entry.Artist != "" {
				label = entry.Artist + " - " + label
			}
			fmt.Fprintf(&sb, "#EXTINF:%d,%s\n", entry.seconds(), label)
		}
		sb.WriteString(filepath.Base(entry.Path) + "\n")
	}

	return sb.String()
}

func (p *PlaylistCreator) createPLS(playlist Playlist) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, entry := range playlist.Entries {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, filepath.Base(entry.Path))
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, entry.displayTitle())
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, entry.seconds())
	}

	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(playlist.Entries))
	sb.WriteString("Version=2\n")

	return sb.String()
}

func (p *PlaylistCreator) createWPL(playlist Playlist) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(playlist.Title))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, entry := range playlist.Entries {
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(filepath.Base(entry.Path)))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

func (p *PlaylistCreator) createZPL(playlist Playlist) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(playlist.Title))
	sb.WriteString("    <meta name=\"Generator\" content=\"MusicForge\"/>\n")
	fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(playlist.Entries))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, entry := range playlist.Entries {
		fmt.Fprintf(&sb, "      <media src=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\"",
			escapeXML(filepath.Base(entry.Path)),
			escapeXML(entry.displayTitle()),
			escapeXML(entry.Artist))
		if entry.Duration > 0 {
			duration := time.Duration(entry.Duration * float64(time.Second))
			fmt.Fprintf(&sb, " duration=\"%d\"", duration.Milliseconds())
		}
		sb.WriteString("/>\n")
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// escapeXML escapes & < > " ' for use in XML text and attributes.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
