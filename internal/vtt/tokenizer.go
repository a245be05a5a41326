package vtt

import (
	"strings"
	"unicode"

	"github.com/mgpai22/cuetrack/internal/logging"
)

// receives the token stream of a cue text line
type Listener interface {
	OnData(text string)
	OnStart(tag string, classes []string, annotation string)
	OnEnd(tag string)
	OnTimestamp(ms int64)
	OnLineEnd()
}

var escapes = []struct {
	escape      string
	replacement string
}{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&lrm;", "\u200e"},
	{"&rlt;", "\u200f"},
	{"&rlm;", "\u200f"},
	{"&nbsp;", "\u00a0"},
}

// one state of the tokenizer; start resets the phase-local buffers
type phase interface {
	start() phase
	tokenize()
}

// Tokenizer scans WebVTT cue text one line at a time. A tag may continue
// over several lines, so phase state survives between Tokenize calls until
// Reset.
type Tokenizer struct {
	line       string
	handledLen int

	phase phase
	data  *dataPhase
	tag   *tagPhase

	listener Listener
	logger   *logging.Logger
}

type TokenizerOption func(*Tokenizer)

func WithTokenizerLogger(l *logging.Logger) TokenizerOption {
	return func(t *Tokenizer) {
		t.logger = logging.OrNop(l)
	}
}

func NewTokenizer(listener Listener, opts ...TokenizerOption) *Tokenizer {
	t := &Tokenizer{
		listener: listener,
		logger:   logging.NewNop(),
	}
	t.data = &dataPhase{t: t}
	t.tag = &tagPhase{t: t}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t
}

// back to the data phase, dropping any partially read tag
func (t *Tokenizer) Reset() {
	t.phase = t.data.start()
}

// processes one line fully
func (t *Tokenizer) Tokenize(line string) {
	t.handledLen = 0
	t.line = line
	for t.handledLen < len(t.line) {
		t.phase.tokenize()
	}

	// a tag may legitimately continue on the next line
	if _, inTag := t.phase.(*tagPhase); !inTag {
		t.listener.OnLineEnd()
	}
}

type dataPhase struct {
	t    *Tokenizer
	data strings.Builder
}

func (p *dataPhase) start() phase {
	p.data.Reset()
	return p
}

func (p *dataPhase) tokenize() {
	t := p.t
	end := len(t.line)
scan:
	for pos := t.handledLen; pos < len(t.line); pos++ {
		switch t.line[pos] {
		case '&':
			if next, ok := p.replaceEscape(pos); ok {
				pos = next - 1
			}
		case '<':
			end = pos
			t.phase = t.tag.start()
			break scan
		}
	}

	p.data.WriteString(t.line[t.handledLen:end])
	if p.data.Len() > 0 {
		t.listener.OnData(p.data.String())
	}
	p.data.Reset()
	t.handledLen = end
}

// decodes the escape at pos, returning the offset just past it
func (p *dataPhase) replaceEscape(pos int) (int, bool) {
	t := p.t
	for _, e := range escapes {
		if strings.HasPrefix(t.line[pos:], e.escape) {
			p.data.WriteString(t.line[t.handledLen:pos])
			p.data.WriteString(e.replacement)
			t.handledLen = pos + len(e.escape)
			return t.handledLen, true
		}
	}
	return pos, false
}

type tagPhase struct {
	t            *Tokenizer
	atAnnotation bool
	name         string
	annotation   string
}

func (p *tagPhase) start() phase {
	p.name = ""
	p.annotation = ""
	p.atAnnotation = false
	return p
}

func (p *tagPhase) tokenize() {
	t := p.t
	if !p.atAnnotation {
		// skip '<'
		t.handledLen++
	}

	if t.handledLen < len(t.line) {
		rest := t.line[t.handledLen:]
		var n int
		if p.atAnnotation || rest[0] == '/' {
			n = strings.IndexByte(rest, '>')
		} else {
			n = strings.IndexAny(rest, "\t\f >")
		}
		if n < 0 {
			n = len(rest)
		}

		part := rest[:n]
		t.handledLen += n
		if p.atAnnotation {
			p.annotation += " " + part
		} else {
			p.name = part
		}
	}

	p.atAnnotation = true

	if t.handledLen < len(t.line) && t.line[t.handledLen] == '>' {
		p.dispatch()
		t.phase = t.data.start()
		t.handledLen++
	}
}

func (p *tagPhase) dispatch() {
	t := p.t
	name := p.name

	switch {
	case strings.HasPrefix(name, "/"):
		t.listener.OnEnd(name[1:])

	case name != "" && unicode.IsDigit(rune(name[0])):
		ms, err := ParseTimestamp(name)
		if err != nil {
			t.logger.Debugw("Dropping invalid timestamp tag",
				"tag", "<"+name+">",
				"error", err,
			)
			return
		}
		t.listener.OnTimestamp(ms)

	default:
		annotation := strings.Join(strings.Fields(p.annotation), " ")

		var classes []string
		if dot := strings.IndexByte(name, '.'); dot >= 0 {
			classes = strings.Split(name[dot+1:], ".")
			name = name[:dot]
		}
		t.listener.OnStart(name, classes, annotation)
	}
}
