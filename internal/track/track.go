package track

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/mgpai22/cuetrack/internal/logging"
	"github.com/mgpai22/cuetrack/internal/ttml"
	"github.com/mgpai22/cuetrack/internal/vtt"
)

var (
	// a chunk arrived for another run while one was still open
	ErrOverlappingRun = errors.New("overlapping run")
	ErrClosed         = errors.New("track closed")
)

type Option func(*Track)

func WithLogger(l *logging.Logger) Option {
	return func(t *Track) {
		t.logger = logging.OrNop(l)
	}
}

func WithID(id uuid.UUID) Option {
	return func(t *Track) {
		t.id = id
	}
}

// rates for TTML documents that do not declare their own
func WithTimeBase(tb ttml.TimeBase) Option {
	return func(t *Track) {
		t.timeBase = tb
	}
}

type request struct {
	fn    func(*state) error
	reply chan error
}

// Track owns the parse state of one subtitle track. All state lives in a
// single goroutine; Feed, Active and Regions are requests answered by it,
// so a half-built run is never visible. Tracks share nothing.
type Track struct {
	id       uuid.UUID
	format   Format
	sink     Sink
	logger   *logging.Logger
	timeBase ttml.TimeBase

	requests  chan request
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// owned by the run loop
type state struct {
	open  bool
	runID int64
	buf   bytes.Buffer

	regions cue.RegionTable
	cues    []cue.Cue
	failed  error
}

func (st *state) resetRun() {
	st.open = false
	st.runID = 0
	st.buf.Reset()
}

// New starts the owner goroutine of a track; Close stops it.
func New(format Format, sink Sink, opts ...Option) *Track {
	if sink == nil {
		sink = SinkFunc(discard)
	}
	t := &Track{
		id:       uuid.New(),
		format:   format,
		sink:     sink,
		logger:   logging.NewNop(),
		timeBase: ttml.DefaultTimeBase(),
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("track").With("track_id", t.id.String(), "format", string(format))

	go t.loop()
	return t
}

func (t *Track) ID() uuid.UUID {
	return t.id
}

func (t *Track) Format() Format {
	return t.format
}

func (t *Track) loop() {
	defer close(t.done)
	st := &state{regions: cue.RegionTable{}}
	for {
		select {
		case req := <-t.requests:
			req.reply <- req.fn(st)
		case <-t.quit:
			if st.open {
				t.logger.Debugw("Discarding unfinished run", "run_id", st.runID)
			}
			return
		}
	}
}

// runs fn on the owner goroutine and waits for its result
func (t *Track) call(ctx context.Context, fn func(*state) error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case t.requests <- req:
	case <-t.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the track down; an open run is discarded.
func (t *Track) Close() {
	t.closeOnce.Do(func() {
		close(t.quit)
	})
	<-t.done
}

// Feed delivers one chunk of a run. The chunk marked endOfRun triggers the
// parse and the emission of every cue of the run before Feed returns. A
// chunk for a different run while one is open fails with
// ErrOverlappingRun, and the track stays failed.
func (t *Track) Feed(ctx context.Context, data []byte, endOfRun bool, runID int64) error {
	return t.call(ctx, func(st *state) error {
		return t.feed(ctx, st, data, endOfRun, runID)
	})
}

// FeedAll hands data to the track as one run, chunkSize bytes at a time.
func (t *Track) FeedAll(ctx context.Context, data []byte, chunkSize int, runID int64) error {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	for len(data) > chunkSize {
		if err := t.Feed(ctx, data[:chunkSize], false, runID); err != nil {
			return err
		}
		data = data[chunkSize:]
	}
	return t.Feed(ctx, data, true, runID)
}

func (t *Track) feed(ctx context.Context, st *state, data []byte, endOfRun bool, runID int64) error {
	if st.failed != nil {
		return st.failed
	}

	if st.open && st.runID != runID {
		st.failed = fmt.Errorf("%w: run %d still open, got chunk for run %d",
			ErrOverlappingRun, st.runID, runID)
		t.logger.Errorw("Overlapping runs, track failed",
			"open_run_id", st.runID,
			"run_id", runID,
		)
		st.resetRun()
		return st.failed
	}

	if !st.open {
		st.open = true
		st.runID = runID
		t.logger.Debugw("Run started", "run_id", runID)
	}
	st.buf.Write(data)

	if !endOfRun {
		return nil
	}
	defer st.resetRun()

	if !utf8.Valid(st.buf.Bytes()) {
		t.logger.Warnw("Dropping run with invalid UTF-8", "run_id", runID, "bytes", st.buf.Len())
		return nil
	}

	text, err := unicode.UTF8BOM.NewDecoder().Bytes(st.buf.Bytes())
	if err != nil {
		t.logger.Warnw("Dropping run that failed to decode", "run_id", runID, "error", err)
		return nil
	}

	return t.finishRun(ctx, st, string(text), runID)
}

func (t *Track) finishRun(ctx context.Context, st *state, text string, runID int64) error {
	var (
		cues    []cue.Cue
		regions []cue.Region
		err     error
	)
	switch t.format {
	case FormatWebVTT:
		cues, regions, err = t.resolveWebVTT(text)
	case FormatTTML:
		cues, err = t.resolveTTML(text, runID)
	default:
		err = fmt.Errorf("unsupported track format %q", t.format)
	}
	if err != nil {
		t.logger.Warnw("Dropping run that failed to parse", "run_id", runID, "error", err)
		return nil
	}

	for _, r := range regions {
		st.regions[r.ID] = r
	}

	for i := range cues {
		cues[i].RunID = runID
		if err := t.sink.Emit(ctx, cues[i]); err != nil {
			st.cues = append(st.cues, cues[:i]...)
			return fmt.Errorf("failed to emit cue for run %d: %w", runID, err)
		}
	}
	st.cues = append(st.cues, cues...)

	t.logger.Debugw("Run finished",
		"run_id", runID,
		"cues", len(cues),
		"regions", len(regions),
	)
	return nil
}

func (t *Track) resolveWebVTT(text string) ([]cue.Cue, []cue.Region, error) {
	doc, err := vtt.Parse(text, vtt.WithLogger(t.logger))
	if err != nil {
		return nil, nil, err
	}
	slices.SortStableFunc(doc.Cues, func(a, b cue.Cue) int {
		return compareInt64(a.StartMs, b.StartMs)
	})
	return doc.Cues, doc.Regions, nil
}

func (t *Track) resolveTTML(text string, runID int64) ([]cue.Cue, error) {
	run := &ttmlRun{}
	parser := ttml.NewParser(run, ttml.WithLogger(t.logger), ttml.WithTimeBase(t.timeBase))
	if err := parser.Parse(text, runID); err != nil {
		return nil, err
	}
	if run.root == nil {
		t.logger.Debugw("TTML run has no root element", "run_id", runID)
	}
	return run.sweep(), nil
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Active returns copies of the committed cues showing at nowMs, with
// inline timestamps applied.
func (t *Track) Active(ctx context.Context, nowMs int64) ([]cue.Cue, error) {
	var active []cue.Cue
	err := t.call(ctx, func(st *state) error {
		for _, c := range st.cues {
			if !c.ActiveAt(nowMs) {
				continue
			}
			clone := c.Clone()
			clone.OnTime(nowMs)
			active = append(active, clone)
		}
		return nil
	})
	return active, err
}

// snapshot of the regions published by completed runs
func (t *Track) Regions(ctx context.Context) (cue.RegionTable, error) {
	table := cue.RegionTable{}
	err := t.call(ctx, func(st *state) error {
		for id, r := range st.regions {
			table[id] = r
		}
		return nil
	})
	return table, err
}

// Region implements cue.RegionLookup. It must not be called from a Sink.
func (t *Track) Region(id string) (cue.Region, bool) {
	var (
		region cue.Region
		ok     bool
	)
	err := t.call(context.Background(), func(st *state) error {
		region, ok = st.regions[id]
		return nil
	})
	if err != nil {
		return cue.Region{}, false
	}
	return region, ok
}
