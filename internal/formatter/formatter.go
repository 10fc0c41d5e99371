// package formatter renders local playlists as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// Formats lists the accepted formats in help-text order.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat accepts a format name, with "md" and "text" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// Export is a playlist with its resolved tracks.
type Export struct {
	Playlist *models.Playlist     `json:"playlist"`
	Tracks   []*models.Track      `json:"tracks"`
	Remote   *models.UserPlaylist `json:"remote,omitempty"`
	Labels   map[string]string    `json:"-"` // mood ID to display label
}

func (e *Export) label(moodID string) string {
	if l, ok := e.Labels[moodID]; ok {
		return l
	}
	return moodID
}

// ToCSV converts an Export to CSV with columns: Position, Title, Artist, Genre, Mood
func ToCSV(e *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Genre", "Mood"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range e.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			track.Genre,
			e.label(track.MoodID),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts an Export to Markdown with a link to the remote copy when one exists.
func ToMarkdown(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", e.Playlist.Name)
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(e.Tracks))
	if e.Remote != nil {
		fmt.Fprintf(&buf, "**Spotify**: [%s](%s)\n", e.Remote.RemoteID, e.Remote.RemoteURL)
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range e.Tracks {
		genre := ""
		if track.Genre != "" {
			genre = fmt.Sprintf(" (%s)", track.Genre)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, genre, e.label(track.MoodID))
	}

	return buf.Bytes(), nil
}

// ToText converts an Export to plain text
func ToText(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", e.Playlist.Name)
	if e.Remote != nil {
		fmt.Fprintf(&buf, "Spotify: %s\n", e.Remote.RemoteURL)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(e.Tracks))

	for i, track := range e.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ToJSON renders the export as indented JSON.
func ToJSON(e *Export) ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Render converts e to format.
func Render(e *Export, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ToCSV(e)
	case FormatMarkdown:
		return ToMarkdown(e)
	case FormatText:
		return ToText(e)
	default:
		return ToJSON(e)
	}
}

// WriteExport renders e into dir, named after the playlist, and returns the written path.
func WriteExport(e *Export, format Format, dir string) (string, error) {
	data, err := Render(e, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, FileName(e.Playlist.Name)+format.Extension())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// FileName turns a playlist name into a safe base file name.
func FileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '/':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "playlist"
	}
	return b.String()
}

// Manifest summarizes a bulk export.
type Manifest struct {
	Format  Format          `json:"format"`
	Entries []ManifestEntry `json:"entries"`
}

type ManifestEntry struct {
	Playlist string `json:"playlist"`
	File     string `json:"file,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WriteManifest writes m as JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
