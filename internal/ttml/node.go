package ttml

import (
	"github.com/mgpai22/cuetrack/internal/cue"
)

// end time that is inherited from context when the tree is resolved
const Unbounded = cue.EndOfMedia

// name of text-only leaves
const TextName = "#pcdata"

const (
	TagTT               = "tt"
	TagHead             = "head"
	TagBody             = "body"
	TagDiv              = "div"
	TagP                = "p"
	TagSpan             = "span"
	TagBr               = "br"
	TagStyle            = "style"
	TagStyling          = "styling"
	TagLayout           = "layout"
	TagRegion           = "region"
	TagMetadata         = "metadata"
	TagSMPTEImage       = "smpte:image"
	TagSMPTEData        = "smpte:data"
	TagSMPTEInformation = "smpte:information"
)

var supportedTags = map[string]bool{
	TagTT:               true,
	TagHead:             true,
	TagBody:             true,
	TagDiv:              true,
	TagP:                true,
	TagSpan:             true,
	TagBr:               true,
	TagStyle:            true,
	TagStyling:          true,
	TagLayout:           true,
	TagRegion:           true,
	TagMetadata:         true,
	TagSMPTEImage:       true,
	TagSMPTEData:        true,
	TagSMPTEInformation: true,
}

func IsSupported(name string) bool {
	return supportedTags[name]
}

// Node is one element or text leaf of a parsed TTML tree. Children are
// owned; Parent is a back reference only.
type Node struct {
	Name       string
	Attributes string
	Text       string
	StartMs    int64
	EndMs      int64
	Parent     *Node
	Children   []*Node
	RunID      int64
}

func (n *Node) IsText() bool {
	return n.Name == TextName
}

func (n *Node) Bounded() bool {
	return n.EndMs != Unbounded
}

// half-open overlap with [startMs, endMs)
func (n *Node) IsActive(startMs, endMs int64) bool {
	return n.EndMs > startMs && n.StartMs < endMs
}

// calls fn for n and every descendant, depth first
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
