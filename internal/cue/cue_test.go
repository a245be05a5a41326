package cue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpanEnabled(t *testing.T) {
	assert.True(t, NewSpan("plain", NoTimestamp).Enabled)
	assert.False(t, NewSpan("karaoke", 1500).Enabled)
	assert.False(t, NewSpan("plain", NoTimestamp).HasTimestamp())
	assert.True(t, NewSpan("at zero", 0).HasTimestamp())
}

func TestOnTimeEnablesReachedSpans(t *testing.T) {
	c := NewPlain(0, 5000, [][]Span{
		{NewSpan("Never ", NoTimestamp), NewSpan("drink ", 1000), NewSpan("liquid ", 2000)},
		{NewSpan("nitrogen", 3000)},
	})

	c.OnTime(2000)

	lines := c.Plain.Lines
	assert.True(t, lines[0][0].Enabled)
	assert.True(t, lines[0][1].Enabled)
	assert.True(t, lines[0][2].Enabled)
	assert.False(t, lines[1][0].Enabled)

	c.OnTime(500)
	assert.True(t, lines[0][0].Enabled)
	assert.False(t, lines[0][1].Enabled)
}

func TestCloneIsolatesSpans(t *testing.T) {
	c := NewPlain(0, 1000, [][]Span{{NewSpan("a", 500)}})
	c.Plain.RegionID = "fred"

	clone := c.Clone()
	clone.OnTime(600)

	assert.True(t, clone.Plain.Lines[0][0].Enabled)
	assert.False(t, c.Plain.Lines[0][0].Enabled)
	assert.Equal(t, "fred", clone.RegionID())
}

func TestText(t *testing.T) {
	plain := NewPlain(0, 1000, [][]Span{
		{NewSpan("Hello ", NoTimestamp), NewSpan("world", 200)},
		{NewSpan("again", NoTimestamp)},
	})
	assert.Equal(t, "Hello world\nagain", plain.Text())

	styled := NewStyled(0, 1000, "styled text", "<p>styled text</p>")
	assert.Equal(t, "styled text", styled.Text())

	empty := NewPlain(0, 0, nil)
	assert.Equal(t, "", empty.Text())
}

func TestActiveAtAndOpenEnded(t *testing.T) {
	c := NewStyled(1000, 2000, "x", "")
	assert.False(t, c.ActiveAt(999))
	assert.True(t, c.ActiveAt(1000))
	assert.False(t, c.ActiveAt(2000))
	assert.False(t, c.OpenEnded())

	open := NewStyled(1000, EndOfMedia, "x", "")
	assert.True(t, open.OpenEnded())
	assert.True(t, open.ActiveAt(1<<40))
}

func TestRegionLookup(t *testing.T) {
	table := RegionTable{"fred": DefaultRegion("fred")}

	c := NewPlain(0, 1000, nil)
	_, ok := c.Region(table)
	assert.False(t, ok, "cue without region id")

	c.Plain.RegionID = "fred"
	r, ok := c.Region(table)
	require.True(t, ok)
	assert.Equal(t, 3, r.Lines)
	assert.Equal(t, ScrollNone, r.Scroll)

	c.Plain.RegionID = "bill"
	_, ok = c.Region(table)
	assert.False(t, ok, "unknown region renders without one")

	calls := 0
	lookup := RegionLookupFunc(func(id string) (Region, bool) {
		calls++
		return Region{ID: id}, true
	})
	r, ok = c.Region(lookup)
	require.True(t, ok)
	assert.Equal(t, "bill", r.ID)
	assert.Equal(t, 1, calls)
}
