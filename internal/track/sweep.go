package track

import (
	"slices"

	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/mgpai22/cuetrack/internal/ttml"
)

// sorted set of distinct interval boundaries
type timeEvents []int64

func newTimeEvents(values []int64) timeEvents {
	events := slices.Clone(values)
	slices.Sort(events)
	return slices.Compact(events)
}

func (e *timeEvents) pollFirst() int64 {
	first := (*e)[0]
	*e = (*e)[1:]
	return first
}

func (e timeEvents) first() int64 {
	return e[0]
}

// collects paragraphs and their boundaries while a TTML run is parsed
type ttmlRun struct {
	nodes  []*ttml.Node
	events []int64
	root   *ttml.Node
}

func (r *ttmlRun) OnNodeParsed(node *ttml.Node) {
	r.nodes = append(r.nodes, node)
	node.Walk(func(n *ttml.Node) {
		if !n.IsText() {
			r.events = append(r.events, n.StartMs, n.EndMs)
		}
	})
}

func (r *ttmlRun) OnRootParsed(root *ttml.Node) {
	r.root = root
}

// Sweep merges the boundaries of every paragraph (and its element
// descendants) into consecutive windows and returns one cue per window in
// which at least one paragraph is active. Cues never overlap and come out
// in increasing start order.
func Sweep(root *ttml.Node, paragraphs []*ttml.Node) []cue.Cue {
	run := &ttmlRun{}
	for _, p := range paragraphs {
		run.OnNodeParsed(p)
	}
	run.root = root
	return run.sweep()
}

func (r *ttmlRun) sweep() []cue.Cue {
	if r.root == nil {
		return nil
	}

	var cues []cue.Cue
	events := newTimeEvents(r.events)
	for len(events) >= 2 {
		start := events.pollFirst()
		end := events.first()
		if !r.anyActive(start, end) {
			continue
		}
		cues = append(cues, cue.NewStyled(
			start,
			end,
			ttml.ApplySpacePolicy(ttml.ExtractText(r.root, start, end), false),
			ttml.ExtractFragment(r.root, start, end),
		))
	}
	return cues
}

func (r *ttmlRun) anyActive(start, end int64) bool {
	for _, n := range r.nodes {
		if n.IsActive(start, end) {
			return true
		}
	}
	return false
}
