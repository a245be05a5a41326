package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/mgpai22/cuetrack/internal/vtt"
)

// represents supported export formats
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// longest time SRT and WebVTT timestamps are rendered with; open-ended
// cues are written as ending here
const maxRenderMs int64 = 359_999_999

// interface for writing cues
type Writer interface {
	Write(w io.Writer, cues []cue.Cue) error
}

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// JSON records, one per cue
type JSONWriter struct {
	Indent string
}

// YAML records, one per cue
type YAMLWriter struct{}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatJSON:
		return &JSONWriter{Indent: "  "}, nil
	case FormatYAML:
		return &YAMLWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatSRT, FormatVTT, FormatJSON, FormatYAML:
		return f, nil
	case "webvtt":
		return FormatVTT, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// writes the cues to path, creating parent directories
func WriteFile(path string, format Format, cues []cue.Cue) error {
	w, err := NewWriter(format)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := w.Write(f, cues); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", format, err)
	}
	return f.Close()
}

func (w *SRTWriter) Write(out io.Writer, cues []cue.Cue) error {
	var sb strings.Builder
	for i, c := range cues {
		// index (1-based)
		sb.WriteString(fmt.Sprintf("%d\n", i+1))

		// timestamps: 00:00:00,000 --> 00:00:00,000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatSRTTime(c.StartMs),
			formatSRTTime(renderEnd(c))))

		sb.WriteString(joinPayload(strings.Split(c.Text(), "\n")))
		sb.WriteString("\n\n")
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

func (w *VTTWriter) Write(out io.Writer, cues []cue.Cue) error {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, c := range cues {
		// cue identifier, the parsed one when present
		id := fmt.Sprintf("%d", i+1)
		if c.Plain != nil && c.Plain.ID != "" {
			id = c.Plain.ID
		}
		sb.WriteString(id)
		sb.WriteString("\n")

		sb.WriteString(fmt.Sprintf("%s --> %s",
			vtt.FormatTimestamp(c.StartMs),
			vtt.FormatTimestamp(renderEnd(c))))
		if region := c.RegionID(); region != "" {
			sb.WriteString(" region:")
			sb.WriteString(region)
		}
		sb.WriteString("\n")

		sb.WriteString(vttPayload(c))
		sb.WriteString("\n\n")
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// cue text with inline timestamps and markup characters escaped
func vttPayload(c cue.Cue) string {
	if c.Plain == nil {
		return joinPayload(strings.Split(escapeVTT(c.Text()), "\n"))
	}

	// a timestamp holds until the next one, across lines
	last := cue.NoTimestamp
	lines := make([]string, 0, len(c.Plain.Lines))
	for _, line := range c.Plain.Lines {
		var sb strings.Builder
		for _, span := range line {
			if span.HasTimestamp() && span.TimestampMs != last {
				sb.WriteString("<" + vtt.FormatTimestamp(span.TimestampMs) + ">")
				last = span.TimestampMs
			}
			sb.WriteString(escapeVTT(span.Text))
		}
		lines = append(lines, sb.String())
	}
	return joinPayload(lines)
}

// a blank line ends the cue block in both SRT and WebVTT
func joinPayload(lines []string) string {
	kept := lines[:0:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

var vttEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeVTT(text string) string {
	return vttEscaper.Replace(text)
}

// exported shape of a cue
type Record struct {
	Index    int          `json:"index" yaml:"index"`
	Kind     cue.Kind     `json:"kind" yaml:"kind"`
	StartMs  int64        `json:"start_ms" yaml:"start_ms"`
	EndMs    *int64       `json:"end_ms,omitempty" yaml:"end_ms,omitempty"`
	Start    string       `json:"start" yaml:"start"`
	End      string       `json:"end,omitempty" yaml:"end,omitempty"`
	RunID    int64        `json:"run_id" yaml:"run_id"`
	Text     string       `json:"text" yaml:"text"`
	RegionID string       `json:"region_id,omitempty" yaml:"region_id,omitempty"`
	Lines    [][]cue.Span `json:"lines,omitempty" yaml:"lines,omitempty"`
	Fragment string       `json:"fragment,omitempty" yaml:"fragment,omitempty"`
}

// open-ended cues carry no end
func Records(cues []cue.Cue) []Record {
	records := make([]Record, 0, len(cues))
	for i, c := range cues {
		r := Record{
			Index:    i + 1,
			Kind:     c.Kind,
			StartMs:  c.StartMs,
			Start:    vtt.FormatTimestamp(c.StartMs),
			RunID:    c.RunID,
			Text:     c.Text(),
			RegionID: c.RegionID(),
		}
		if !c.OpenEnded() {
			end := c.EndMs
			r.EndMs = &end
			r.End = vtt.FormatTimestamp(end)
		}
		if c.Plain != nil {
			r.Lines = c.Plain.Lines
		}
		if c.Styled != nil {
			r.Fragment = c.Styled.Fragment
		}
		records = append(records, r)
	}
	return records
}

func (w *JSONWriter) Write(out io.Writer, cues []cue.Cue) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", w.Indent)
	return enc.Encode(Records(cues))
}

func (w *YAMLWriter) Write(out io.Writer, cues []cue.Cue) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(Records(cues)); err != nil {
		return err
	}
	return enc.Close()
}

func renderEnd(c cue.Cue) int64 {
	if c.EndMs > maxRenderMs {
		return maxRenderMs
	}
	return c.EndMs
}

func formatSRTTime(ms int64) string {
	hours := ms / 3_600_000
	minutes := ms / 60_000 % 60
	seconds := ms / 1000 % 60
	millis := ms % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// export format based on file extension
func FormatFromExtension(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// file extension for a format
func ExtensionForFormat(format Format) string {
	switch format {
	case FormatSRT:
		return ".srt"
	case FormatVTT:
		return ".vtt"
	case FormatYAML:
		return ".yaml"
	default:
		return ".json"
	}
}
