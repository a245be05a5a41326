package ttml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mgpai22/cuetrack/internal/logging"
)

// receives nodes as the walk closes them
type Listener interface {
	// a paragraph closed; it is a candidate cue source
	OnNodeParsed(node *Node)
	// the root closed; node is the whole tree
	OnRootParsed(node *Node)
}

// ListenerFuncs adapts closures to Listener; nil fields are skipped
type ListenerFuncs struct {
	NodeParsed func(*Node)
	RootParsed func(*Node)
}

func (f ListenerFuncs) OnNodeParsed(node *Node) {
	if f.NodeParsed != nil {
		f.NodeParsed(node)
	}
}

func (f ListenerFuncs) OnRootParsed(node *Node) {
	if f.RootParsed != nil {
		f.RootParsed(node)
	}
}

type Option func(*Parser)

func WithLogger(l *logging.Logger) Option {
	return func(p *Parser) {
		p.logger = logging.OrNop(l)
	}
}

// default rates for documents that do not declare ttp rates
func WithTimeBase(tb TimeBase) Option {
	return func(p *Parser) {
		p.timeBase = tb
	}
}

// Parser builds a timed node tree from a complete TTML document.
type Parser struct {
	listener Listener
	logger   *logging.Logger
	timeBase TimeBase
}

func NewParser(listener Listener, opts ...Option) *Parser {
	p := &Parser{
		listener: listener,
		logger:   logging.NewNop(),
		timeBase: DefaultTimeBase(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// per-document walk state
type walk struct {
	*Parser
	runID     int64
	timeBase  TimeBase
	stack     []*Node
	skipDepth int
}

// Parse walks doc depth first. Unsupported elements are skipped with their
// whole subtree; only malformed XML fails the parse.
func (p *Parser) Parse(doc string, runID int64) error {
	w := &walk{
		Parser:   p,
		runID:    runID,
		timeBase: p.timeBase,
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to parse TTML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t)
		case xml.CharData:
			w.text(string(t))
		case xml.EndElement:
			if err := w.end(t); err != nil {
				return err
			}
		}
	}

	if len(w.stack) > 0 {
		return fmt.Errorf("failed to parse TTML: unclosed element <%s>", w.top().Name)
	}
	return nil
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func (w *walk) top() *Node {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

func (w *walk) start(el xml.StartElement) {
	if w.skipDepth > 0 {
		w.skipDepth++
		return
	}

	name := qualifiedName(el.Name)
	if !IsSupported(name) {
		w.logger.Debugw("Skipping unsupported TTML element", "element", name, "run_id", w.runID)
		w.skipDepth = 1
		return
	}

	parent := w.top()
	if name == TagTT && parent == nil {
		w.readRates(el.Attr)
	}

	node := w.newNode(name, el.Attr, parent)
	if parent != nil {
		parent.Children = append(parent.Children, node)
	}
	w.stack = append(w.stack, node)
}

func (w *walk) readRates(attrs []xml.Attr) {
	for _, attr := range attrs {
		name := qualifiedName(attr.Name)
		switch name {
		case "ttp:frameRate", "ttp:subFrameRate", "ttp:tickRate":
			tb, err := w.timeBase.withRate(name, attr.Value)
			if err != nil {
				w.logger.Warnw("Ignoring TTML rate", "error", err)
				continue
			}
			w.timeBase = tb
		}
	}
}

func (w *walk) newNode(name string, attrs []xml.Attr, parent *Node) *Node {
	var (
		start          int64
		end            = Unbounded
		dur            int64
		hasEnd, hasDur bool
		blob           strings.Builder
	)

	for _, attr := range attrs {
		attrName := qualifiedName(attr.Name)
		switch attrName {
		case "begin", "end", "dur":
			ms, err := w.timeBase.ParseTimeExpression(attr.Value)
			if err != nil {
				w.logger.Warnw("Ignoring TTML timing attribute",
					"element", name,
					"attribute", attrName,
					"error", err,
				)
				continue
			}
			switch attrName {
			case "begin":
				start = ms
			case "end":
				end, hasEnd = ms, true
			case "dur":
				dur, hasDur = ms, true
			}
		default:
			blob.WriteByte(' ')
			blob.WriteString(attrName)
			blob.WriteString(`="`)
			_ = xml.EscapeText(&blob, []byte(attr.Value))
			blob.WriteByte('"')
		}
	}

	if parent != nil {
		start += parent.StartMs
		if hasEnd {
			end += parent.StartMs
		}
	}

	if hasDur {
		if hasEnd {
			w.logger.Warnw("Both 'dur' and 'end' set, ignoring 'end'",
				"element", name,
				"run_id", w.runID,
			)
		}
		end = start + dur
	}

	if parent != nil && parent.Bounded() && end > parent.EndMs {
		end = parent.EndMs
	}

	return &Node{
		Name:       name,
		Attributes: blob.String(),
		StartMs:    start,
		EndMs:      end,
		Parent:     parent,
		RunID:      w.runID,
	}
}

func (w *walk) text(raw string) {
	parent := w.top()
	if w.skipDepth > 0 || parent == nil {
		return
	}

	text := ApplyDefaultSpacePolicy(raw)
	if text == "" {
		return
	}
	parent.Children = append(parent.Children, &Node{
		Name:   TextName,
		Text:   text,
		Parent: parent,
		RunID:  w.runID,
	})
}

func (w *walk) end(el xml.EndElement) error {
	if w.skipDepth > 0 {
		w.skipDepth--
		return nil
	}

	name := qualifiedName(el.Name)
	node := w.top()
	if node == nil || node.Name != name {
		return fmt.Errorf("failed to parse TTML: unexpected end element </%s>", name)
	}
	w.stack = w.stack[:len(w.stack)-1]

	switch {
	case name == TagP:
		w.listener.OnNodeParsed(node)
	case name == TagTT && len(w.stack) == 0:
		w.listener.OnRootParsed(node)
	}
	return nil
}
