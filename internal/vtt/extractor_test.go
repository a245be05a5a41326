package vtt

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/cuetrack/internal/cue"
)

func extract(lines ...string) [][]cue.Span {
	e := NewExtractor()
	tok := NewTokenizer(e)
	for _, line := range lines {
		tok.Tokenize(line)
	}
	return e.Text()
}

func TestExtractorSplitsOnTimestamps(t *testing.T) {
	lines := extract("<v Fred>Never <00:00:01.000>drink <00:00:02.000><b>liquid</b> nitrogen")

	require.Len(t, lines, 1)
	assert.Equal(t, []cue.Span{
		{Text: "Never ", TimestampMs: cue.NoTimestamp, Enabled: true},
		{Text: "drink ", TimestampMs: 1000, Enabled: false},
		{Text: "liquid nitrogen", TimestampMs: 2000, Enabled: false},
	}, lines[0])
}

func TestExtractorRepeatedTimestampKeepsSpan(t *testing.T) {
	lines := extract("one <00:00:01.000>two <00:00:01.000>three")

	require.Len(t, lines, 1)
	require.Len(t, lines[0], 2)
	assert.Equal(t, "two three", lines[0][1].Text)
}

func TestExtractorTimestampCarriesAcrossLines(t *testing.T) {
	lines := extract("first <00:00:03.000>line", "second line")

	require.Len(t, lines, 2)
	require.Len(t, lines[1], 1)
	assert.Equal(t, int64(3000), lines[1][0].TimestampMs)
}

var markupRegex = regexp.MustCompile(`<[^>]*>`)

func TestExtractorRoundTrip(t *testing.T) {
	inputs := []string{
		"plain text only",
		"<c.yellow>Hello</c> <00:00:00.500>there <i>friend</i>",
		"<00:00:01.000>a<00:00:02.000>b<00:00:03.000>c",
		"<v Narrator>It was <u>the</u> best of <00:01:00.000>times",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			lines := extract(input)
			require.Len(t, lines, 1)

			var sb strings.Builder
			for _, span := range lines[0] {
				sb.WriteString(span.Text)
			}
			assert.Equal(t, markupRegex.ReplaceAllString(input, ""), sb.String())
		})
	}
}

func TestExtractorIsRestartable(t *testing.T) {
	e := NewExtractor()
	tok := NewTokenizer(e)

	tok.Tokenize("<00:00:05.000>first cue")
	first := e.Text()
	require.Len(t, first, 1)
	assert.Equal(t, int64(5000), first[0][0].TimestampMs)

	tok.Tokenize("second cue")
	second := e.Text()
	require.Len(t, second, 1)
	assert.Equal(t, []cue.Span{cue.NewSpan("second cue", cue.NoTimestamp)}, second[0])

	assert.Empty(t, e.Text())
}

func TestExtractorFlushesPendingText(t *testing.T) {
	e := NewExtractor()
	e.OnData("no line end")

	lines := e.Text()
	require.Len(t, lines, 1)
	assert.Equal(t, "no line end", lines[0][0].Text)
}
