package vtt

import (
	"strings"

	"github.com/mgpai22/cuetrack/internal/cue"
)

// Extractor linearizes cue text into lines of spans. Markup tags are
// accepted and discarded; a new span starts whenever the inline timestamp
// changes.
type Extractor struct {
	line          strings.Builder
	currentLine   []cue.Span
	lines         [][]cue.Span
	lastTimestamp int64
}

var _ Listener = (*Extractor)(nil)

func NewExtractor() *Extractor {
	e := &Extractor{}
	e.reset()
	return e
}

func (e *Extractor) reset() {
	e.line.Reset()
	e.currentLine = nil
	e.lines = nil
	e.lastTimestamp = cue.NoTimestamp
}

func (e *Extractor) OnData(text string) {
	e.line.WriteString(text)
}

func (e *Extractor) OnStart(string, []string, string) {}

func (e *Extractor) OnEnd(string) {}

func (e *Extractor) OnTimestamp(ms int64) {
	if e.line.Len() > 0 && ms != e.lastTimestamp {
		e.flushSpan()
	}
	e.lastTimestamp = ms
}

func (e *Extractor) OnLineEnd() {
	if e.line.Len() > 0 {
		e.flushSpan()
	}
	e.lines = append(e.lines, e.currentLine)
	e.currentLine = nil
}

func (e *Extractor) flushSpan() {
	e.currentLine = append(e.currentLine, cue.NewSpan(e.line.String(), e.lastTimestamp))
	e.line.Reset()
}

// flushes pending text, returns the lines and resets for the next cue
func (e *Extractor) Text() [][]cue.Span {
	if e.line.Len() > 0 || len(e.currentLine) > 0 {
		e.OnLineEnd()
	}
	lines := e.lines
	e.reset()
	return lines
}
