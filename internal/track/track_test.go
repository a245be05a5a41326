package track

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/mgpai22/cuetrack/internal/logging"
	"github.com/mgpai22/cuetrack/internal/ttml"
)

const overlapTTML = `<tt xmlns="http://www.w3.org/ns/ttml">
<body><div>
<p begin="0ms" end="1000ms">First</p>
<p begin="500ms" end="1500ms">Second</p>
</div></body>
</tt>`

const regionVTT = "WEBVTT\n" +
	"\n" +
	"REGION\n" +
	"id:bottom width:50% lines:2\n" +
	"\n" +
	"00:00:05.000 --> 00:00:07.000 region:bottom\n" +
	"Later\n" +
	"\n" +
	"00:00:01.000 --> 00:00:03.000\n" +
	"Sing <00:00:02.000>along\n"

func newTrack(t *testing.T, format Format, opts ...Option) (*Track, *Collector) {
	t.Helper()
	sink := &Collector{}
	tr := New(format, sink, opts...)
	t.Cleanup(tr.Close)
	return tr, sink
}

func TestTTMLSweepSplitsOverlappingParagraphs(t *testing.T) {
	tr, sink := newTrack(t, FormatTTML)
	ctx := context.Background()

	require.NoError(t, tr.Feed(ctx, []byte(overlapTTML), true, 1))

	require.Len(t, sink.Cues, 3)
	want := []struct {
		start, end int64
		text       string
	}{
		{0, 500, "First"},
		{500, 1000, "First\nSecond"},
		{1000, 1500, "Second"},
	}
	for i, w := range want {
		c := sink.Cues[i]
		assert.Equal(t, cue.KindStyled, c.Kind)
		assert.Equal(t, w.start, c.StartMs)
		assert.Equal(t, w.end, c.EndMs)
		assert.Equal(t, w.text, c.Text())
		assert.Equal(t, int64(1), c.RunID)
	}
}

func TestUnboundedParagraphRunsToEndOfMedia(t *testing.T) {
	tr, sink := newTrack(t, FormatTTML)
	doc := `<tt><body><p begin="1s">x</p><p begin="0s" end="2s">y</p></body></tt>`

	require.NoError(t, tr.Feed(context.Background(), []byte(doc), true, 1))

	require.Len(t, sink.Cues, 3)
	want := []struct {
		start, end int64
		text       string
	}{
		{0, 1000, "y"},
		{1000, 2000, "x\ny"},
		{2000, cue.EndOfMedia, "x"},
	}
	for i, w := range want {
		c := sink.Cues[i]
		assert.Equal(t, w.start, c.StartMs, "cue %d", i)
		assert.Equal(t, w.end, c.EndMs, "cue %d", i)
		assert.Equal(t, w.text, c.Text(), "cue %d", i)
	}
	assert.False(t, sink.Cues[1].OpenEnded())
	assert.True(t, sink.Cues[2].OpenEnded())

	// a boundary shared by several nodes opens one window only
	startsAtZero := 0
	for _, c := range sink.Cues {
		if c.StartMs == 0 {
			startsAtZero++
		}
	}
	assert.Equal(t, 1, startsAtZero)
}

func TestSweepOverParsedTree(t *testing.T) {
	run := &ttmlRun{}
	require.NoError(t, ttml.NewParser(run).Parse(overlapTTML, 4))
	require.NotNil(t, run.root)
	require.Len(t, run.nodes, 2)

	cues := Sweep(run.root, run.nodes)
	require.Len(t, cues, 3)
	assert.Equal(t, int64(500), cues[1].StartMs)
	assert.Equal(t, int64(1000), cues[1].EndMs)
	assert.Equal(t, "First\nSecond", cues[1].Text())
	require.NotNil(t, cues[1].Styled)
	assert.Contains(t, cues[1].Styled.Fragment, "<p")

	// boundaries come from the paragraphs handed in
	cues = Sweep(run.root, run.nodes[1:])
	require.Len(t, cues, 1)
	assert.Equal(t, int64(500), cues[0].StartMs)
	assert.Equal(t, int64(1500), cues[0].EndMs)

	assert.Empty(t, Sweep(nil, run.nodes))
}

func TestFeedAcrossChunks(t *testing.T) {
	tr, sink := newTrack(t, FormatTTML)
	ctx := context.Background()

	doc := []byte(overlapTTML)
	require.NoError(t, tr.Feed(ctx, doc[:10], false, 7))
	require.NoError(t, tr.Feed(ctx, doc[10:40], false, 7))
	assert.Empty(t, sink.Cues)
	require.NoError(t, tr.Feed(ctx, doc[40:], true, 7))

	assert.Len(t, sink.Cues, 3)
}

func TestOverlappingRunIsFatal(t *testing.T) {
	tr, sink := newTrack(t, FormatWebVTT)
	ctx := context.Background()

	require.NoError(t, tr.Feed(ctx, []byte("WEBVTT\n\n"), false, 1))

	err := tr.Feed(ctx, []byte("WEBVTT\n"), true, 2)
	require.ErrorIs(t, err, ErrOverlappingRun)

	// the track stays failed, even for a fresh run
	err = tr.Feed(ctx, []byte(regionVTT), true, 3)
	assert.ErrorIs(t, err, ErrOverlappingRun)
	assert.Empty(t, sink.Cues)
}

func TestRunsAreRestartable(t *testing.T) {
	tr, sink := newTrack(t, FormatWebVTT)
	ctx := context.Background()

	require.NoError(t, tr.Feed(ctx, []byte(regionVTT), true, 1))
	require.NoError(t, tr.Feed(ctx, []byte(regionVTT), true, 2))

	require.Len(t, sink.Cues, 4)
	assert.Equal(t, int64(1), sink.Cues[0].RunID)
	assert.Equal(t, int64(2), sink.Cues[3].RunID)
}

func TestWebVTTCuesEmittedInStartOrder(t *testing.T) {
	tr, sink := newTrack(t, FormatWebVTT)

	require.NoError(t, tr.Feed(context.Background(), []byte(regionVTT), true, 1))

	require.Len(t, sink.Cues, 2)
	assert.Equal(t, int64(1000), sink.Cues[0].StartMs)
	assert.Equal(t, int64(5000), sink.Cues[1].StartMs)
}

func TestRegionsPublishedAtEndOfRun(t *testing.T) {
	tr, sink := newTrack(t, FormatWebVTT)
	ctx := context.Background()

	require.NoError(t, tr.Feed(ctx, []byte(regionVTT), false, 1))
	regions, err := tr.Regions(ctx)
	require.NoError(t, err)
	assert.Empty(t, regions)

	require.NoError(t, tr.Feed(ctx, nil, true, 1))

	regions, err = tr.Regions(ctx)
	require.NoError(t, err)
	require.Contains(t, regions, "bottom")
	assert.Equal(t, float64(50), regions["bottom"].WidthPercent)

	r, ok := sink.Cues[1].Region(tr)
	require.True(t, ok)
	assert.Equal(t, 2, r.Lines)

	_, ok = sink.Cues[0].Region(tr)
	assert.False(t, ok)
}

func TestInvalidUTF8DropsRun(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tr, sink := newTrack(t, FormatWebVTT, WithLogger(logging.New(zap.New(core))))
	ctx := context.Background()

	require.NoError(t, tr.Feed(ctx, []byte("WEBVTT\n\n00:01.000 --> 00:02.000\nbad \xff\n"), true, 1))
	assert.Empty(t, sink.Cues)
	assert.Equal(t, 1, logs.FilterMessage("Dropping run with invalid UTF-8").Len())

	// a split multi-byte character is fine once the run is complete
	data := []byte("WEBVTT\n\n00:01.000 --> 00:02.000\ncafé\n")
	split := len(data) - 2
	require.NoError(t, tr.Feed(ctx, data[:split], false, 2))
	require.NoError(t, tr.Feed(ctx, data[split:], true, 2))
	require.Len(t, sink.Cues, 1)
	assert.Equal(t, "café", sink.Cues[0].Text())
}

func TestMalformedRunKeepsTrackUsable(t *testing.T) {
	tr, sink := newTrack(t, FormatTTML)
	ctx := context.Background()

	require.NoError(t, tr.Feed(ctx, []byte("<tt><body>"), true, 1))
	assert.Empty(t, sink.Cues)

	require.NoError(t, tr.Feed(ctx, []byte(overlapTTML), true, 2))
	assert.Len(t, sink.Cues, 3)
}

func TestActiveAppliesInlineTimestamps(t *testing.T) {
	tr, _ := newTrack(t, FormatWebVTT)
	ctx := context.Background()
	require.NoError(t, tr.Feed(ctx, []byte(regionVTT), true, 1))

	active, err := tr.Active(ctx, 1500)
	require.NoError(t, err)
	require.Len(t, active, 1)
	spans := active[0].Plain.Lines[0]
	require.Len(t, spans, 2)
	assert.True(t, spans[0].Enabled)
	assert.False(t, spans[1].Enabled)

	active, err = tr.Active(ctx, 2500)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Plain.Lines[0][1].Enabled)

	active, err = tr.Active(ctx, 3000)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSinkErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	tr := New(FormatWebVTT, SinkFunc(func(context.Context, cue.Cue) error { return boom }))
	defer tr.Close()

	err := tr.Feed(context.Background(), []byte(regionVTT), true, 4)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "run 4")
}

func TestClosedTrack(t *testing.T) {
	id := uuid.New()
	tr := New(FormatTTML, nil, WithID(id))
	assert.Equal(t, id, tr.ID())

	tr.Close()
	tr.Close()

	err := tr.Feed(context.Background(), []byte(overlapTTML), true, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, ok := tr.Region("any")
	assert.False(t, ok)
}

func TestMultiSink(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	failing := SinkFunc(func(context.Context, cue.Cue) error { return errors.New("full") })

	err := MultiSink(a, failing, b).Emit(context.Background(), cue.NewStyled(0, 1, "x", ""))
	assert.EqualError(t, err, "full")
	assert.Len(t, a.Cues, 1)
	assert.Len(t, b.Cues, 1)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		head    string
		want    Format
		wantErr bool
	}{
		{"a.vtt", "", FormatWebVTT, false},
		{"a.dfxp", "", FormatTTML, false},
		{"stream", "\ufeffWEBVTT\n", FormatWebVTT, false},
		{"stream", "  <?xml version=\"1.0\"?>", FormatTTML, false},
		{"stream", "1\n00:00:01,000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.head, func(t *testing.T) {
			got, err := DetectFormat(tt.path, []byte(tt.head))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
