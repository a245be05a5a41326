package ttml

import (
	"encoding/xml"
	"regexp"
	"strings"
)

var (
	spacesAroundLF = regexp.MustCompile(` *\n *`)
	whitespaceRun  = regexp.MustCompile(`[ \t\x0B\f\r]+`)
)

// ApplySpacePolicy normalizes CRLF, removes spaces around line feeds,
// optionally turns line feeds into spaces and collapses whitespace runs.
func ApplySpacePolicy(text string, treatLFAsSpace bool) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spacesAroundLF.ReplaceAllString(text, "\n")
	if treatLFAsSpace {
		text = strings.ReplaceAll(text, "\n", " ")
	}
	return whitespaceRun.ReplaceAllString(text, " ")
}

// policy applied to character data while parsing
func ApplyDefaultSpacePolicy(text string) string {
	return ApplySpacePolicy(text, true)
}

// ExtractText returns the text of paragraphs active in [startMs, endMs),
// one paragraph per line. br inside a paragraph becomes a line break.
func ExtractText(root *Node, startMs, endMs int64) string {
	var sb strings.Builder
	extractText(root, startMs, endMs, &sb, false)
	return strings.TrimSuffix(sb.String(), "\n")
}

func extractText(n *Node, startMs, endMs int64, sb *strings.Builder, inP bool) {
	switch {
	case n.IsText() && inP:
		sb.WriteString(n.Text)
	case n.Name == TagBr && inP:
		sb.WriteByte('\n')
	case n.Name == TagMetadata:
	case n.IsActive(startMs, endMs):
		isP := n.Name == TagP
		length := sb.Len()
		for _, child := range n.Children {
			extractText(child, startMs, endMs, sb, isP || inP)
		}
		if isP && sb.Len() != length {
			sb.WriteByte('\n')
		}
	}
}

// ExtractFragment serializes the subtree active in [startMs, endMs) back
// to markup, attributes kept verbatim.
func ExtractFragment(root *Node, startMs, endMs int64) string {
	var sb strings.Builder
	extractFragment(root, startMs, endMs, &sb)
	return sb.String()
}

func extractFragment(n *Node, startMs, endMs int64, sb *strings.Builder) {
	switch {
	case n.IsText():
		_ = xml.EscapeText(sb, []byte(n.Text))
	case n.Name == TagBr:
		sb.WriteString("<br/>")
	case n.IsActive(startMs, endMs):
		sb.WriteByte('<')
		sb.WriteString(n.Name)
		sb.WriteString(n.Attributes)
		sb.WriteByte('>')
		for _, child := range n.Children {
			extractFragment(child, startMs, endMs, sb)
		}
		sb.WriteString("</")
		sb.WriteString(n.Name)
		sb.WriteByte('>')
	}
}
