package track

import (
	"context"
	"errors"

	"github.com/mgpai22/cuetrack/internal/cue"
)

// Sink receives cues in emission order. It is called from the track's
// owner goroutine and must not call back into the same track.
type Sink interface {
	Emit(ctx context.Context, c cue.Cue) error
}

type SinkFunc func(ctx context.Context, c cue.Cue) error

func (f SinkFunc) Emit(ctx context.Context, c cue.Cue) error {
	return f(ctx, c)
}

// fans every cue out to all sinks, joining their errors
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, c cue.Cue) error {
		var errs []error
		for _, s := range sinks {
			if err := s.Emit(ctx, c); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Collector is a Sink that keeps every emitted cue.
type Collector struct {
	Cues []cue.Cue
}

func (c *Collector) Emit(_ context.Context, v cue.Cue) error {
	c.Cues = append(c.Cues, v)
	return nil
}

func discard(context.Context, cue.Cue) error { return nil }
