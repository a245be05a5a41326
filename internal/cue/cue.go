package cue

import (
	"math"
	"strings"
)

// span has no inline timestamp
const NoTimestamp int64 = -1

// end time of a cue that runs until the end of the media
const EndOfMedia int64 = math.MaxInt64

// represents a contiguous run of text within a cue line
type Span struct {
	Text        string `json:"text" yaml:"text"`
	TimestampMs int64  `json:"timestamp_ms" yaml:"timestamp_ms"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

// a span gated by ts starts disabled until playback reaches it
func NewSpan(text string, ts int64) Span {
	return Span{
		Text:        text,
		TimestampMs: ts,
		Enabled:     ts < 0,
	}
}

func (s Span) HasTimestamp() bool {
	return s.TimestampMs >= 0
}

// grammar that produced a cue
type Kind string

const (
	// WebVTT: lines of spans, optional region reference
	KindPlain Kind = "plain"
	// TTML: flattened text plus the active markup fragment
	KindStyled Kind = "styled"
)

// WebVTT cue settings kept for the renderer
type Settings struct {
	Vertical     string `json:"vertical,omitempty" yaml:"vertical,omitempty"`
	Line         string `json:"line,omitempty" yaml:"line,omitempty"`
	Position     string `json:"position,omitempty" yaml:"position,omitempty"`
	Size         string `json:"size,omitempty" yaml:"size,omitempty"`
	Align        string `json:"align,omitempty" yaml:"align,omitempty"`
	SnapToLines  bool   `json:"snap_to_lines" yaml:"snap_to_lines"`
	LinePosition *int   `json:"line_position,omitempty" yaml:"line_position,omitempty"`
}

// payload of a KindPlain cue
type Plain struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty"`
	Lines    [][]Span `json:"lines" yaml:"lines"`
	RegionID string   `json:"region_id,omitempty" yaml:"region_id,omitempty"`
	Settings Settings `json:"settings" yaml:"settings"`
}

// payload of a KindStyled cue
type Styled struct {
	Text     string `json:"text" yaml:"text"`
	Fragment string `json:"fragment" yaml:"fragment"`
}

// a time-bounded unit of subtitle text. Exactly one of Plain and Styled is
// set, matching Kind.
type Cue struct {
	Kind    Kind    `json:"kind" yaml:"kind"`
	StartMs int64   `json:"start_ms" yaml:"start_ms"`
	EndMs   int64   `json:"end_ms" yaml:"end_ms"`
	RunID   int64   `json:"run_id" yaml:"run_id"`
	Plain   *Plain  `json:"plain,omitempty" yaml:"plain,omitempty"`
	Styled  *Styled `json:"styled,omitempty" yaml:"styled,omitempty"`
}

func NewPlain(startMs, endMs int64, lines [][]Span) Cue {
	return Cue{
		Kind:    KindPlain,
		StartMs: startMs,
		EndMs:   endMs,
		Plain:   &Plain{Lines: lines, Settings: Settings{SnapToLines: true}},
	}
}

func NewStyled(startMs, endMs int64, text, fragment string) Cue {
	return Cue{
		Kind:    KindStyled,
		StartMs: startMs,
		EndMs:   endMs,
		Styled:  &Styled{Text: text, Fragment: fragment},
	}
}

// reports whether the cue runs to the end of the media
func (c *Cue) OpenEnded() bool {
	return c.EndMs == EndOfMedia
}

// reports whether the cue is showing at nowMs, end exclusive
func (c *Cue) ActiveAt(nowMs int64) bool {
	return c.StartMs <= nowMs && nowMs < c.EndMs
}

// enables every span whose timestamp has been reached
func (c *Cue) OnTime(nowMs int64) {
	if c.Plain == nil {
		return
	}
	for _, line := range c.Plain.Lines {
		for i := range line {
			line[i].Enabled = nowMs >= line[i].TimestampMs
		}
	}
}

func (c *Cue) RegionID() string {
	if c.Plain == nil {
		return ""
	}
	return c.Plain.RegionID
}

// resolves the cue's region; unknown or empty ids yield no region
func (c *Cue) Region(lookup RegionLookup) (Region, bool) {
	id := c.RegionID()
	if id == "" || lookup == nil {
		return Region{}, false
	}
	return lookup.Region(id)
}

// plain text of the cue, lines joined with newlines
func (c *Cue) Text() string {
	switch c.Kind {
	case KindStyled:
		if c.Styled == nil {
			return ""
		}
		return c.Styled.Text
	case KindPlain:
		if c.Plain == nil {
			return ""
		}
		lines := make([]string, 0, len(c.Plain.Lines))
		for _, line := range c.Plain.Lines {
			var sb strings.Builder
			for _, span := range line {
				sb.WriteString(span.Text)
			}
			lines = append(lines, sb.String())
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// deep copy, so span enabling on the copy never reaches the original
func (c Cue) Clone() Cue {
	if c.Plain != nil {
		p := *c.Plain
		p.Lines = make([][]Span, len(c.Plain.Lines))
		for i, line := range c.Plain.Lines {
			p.Lines[i] = append([]Span(nil), line...)
		}
		if c.Plain.Settings.LinePosition != nil {
			v := *c.Plain.Settings.LinePosition
			p.Settings.LinePosition = &v
		}
		c.Plain = &p
	}
	if c.Styled != nil {
		s := *c.Styled
		c.Styled = &s
	}
	return c
}
