package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/mgpai22/cuetrack/internal/export"
	"github.com/mgpai22/cuetrack/internal/store"
	"github.com/mgpai22/cuetrack/internal/track"
	"github.com/mgpai22/cuetrack/internal/vtt"
	"github.com/spf13/cobra"
)

// result of running one document through a track
type parsed struct {
	track *track.Track
	cues  []cue.Cue
}

// feeds data to a fresh track as run 1. When db is set every cue is also
// written to it. The caller closes the returned track.
func parseDocument(
	ctx context.Context,
	format track.Format,
	data []byte,
	source string,
	db *store.Store,
) (*parsed, error) {
	collector := &track.Collector{}
	var sink track.Sink = collector

	trackID := uuid.New()
	if db != nil {
		if err := db.RegisterTrack(ctx, trackID.String(), string(format), source); err != nil {
			return nil, fmt.Errorf("failed to register track: %w", err)
		}
		sink = track.MultiSink(collector, db.Sink(trackID.String()))
	}

	tr := track.New(format, sink,
		track.WithID(trackID),
		track.WithLogger(logger),
		track.WithTimeBase(cfg.TimeBase()),
	)

	logger.Infow("Parsing track",
		"track_id", trackID.String(),
		"source", source,
		"format", string(format),
		"bytes", len(data),
		"chunk_size", cfg.ChunkSize,
	)
	if err := tr.FeedAll(ctx, data, cfg.ChunkSize, 1); err != nil {
		tr.Close()
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}

	if db != nil {
		regions, err := tr.Regions(ctx)
		if err != nil {
			tr.Close()
			return nil, err
		}
		if err := db.SaveRegions(ctx, trackID.String(), regions); err != nil {
			tr.Close()
			return nil, fmt.Errorf("failed to store regions: %w", err)
		}
	}

	return &parsed{track: tr, cues: collector.Cues}, nil
}

// input format from the flag, the config, or the document itself
func inputFormat(cmd *cobra.Command, path string, data []byte) (track.Format, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		name = cfg.Format
	}
	if name != "" {
		return track.ParseFormat(name)
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return track.DetectFormat(path, head)
}

// output format from the flag, the output extension, or the config
func outputFormat(cmd *cobra.Command) (export.Format, error) {
	name, _ := cmd.Flags().GetString("to")
	if name != "" {
		return export.ParseFormat(name)
	}
	if outputPath, _ := cmd.Flags().GetString("output"); filepath.Ext(outputPath) != "" {
		return export.FormatFromExtension(outputPath), nil
	}
	return export.ParseFormat(cfg.OutputFormat)
}

// writes cues to --output, or stdout when it is unset. An output path
// without an extension gets the one of the chosen format.
func writeCues(cmd *cobra.Command, cues []cue.Cue) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		w, err := export.NewWriter(format)
		if err != nil {
			return err
		}
		return w.Write(cmd.OutOrStdout(), cues)
	}
	if filepath.Ext(outputPath) == "" {
		outputPath += export.ExtensionForFormat(format)
	}

	if err := export.WriteFile(outputPath, format, cues); err != nil {
		return err
	}
	logger.Infow("Cues written", "output", outputPath, "format", string(format), "cues", len(cues))
	return nil
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("database")
	if path == "" {
		path = cfg.Database
	}
	db, err := store.New(path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return db, nil
}

// parses a media time given as a WebVTT timestamp or in milliseconds
func parseMediaTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("media time must not be negative: %s", s)
		}
		return ms, nil
	}
	ms, err := vtt.ParseTimestamp(s)
	if err != nil {
		return 0, fmt.Errorf("invalid media time %q: use milliseconds or [hh:]mm:ss.ttt", s)
	}
	return ms, nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
