package cli

import (
	"context"
	"fmt"

	"github.com/mgpai22/cuetrack/internal/media"
	"github.com/mgpai22/cuetrack/internal/store"
	"github.com/mgpai22/cuetrack/internal/track"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [media_file]",
	Short: "Extract and parse a subtitle stream from a media file",
	Long: `Extract an embedded subtitle stream with ffmpeg, convert it to WebVTT or
TTML and parse it into cues.

ffmpeg and ffprobe are taken from CUETRACK_FFMPEG_PATH/CUETRACK_FFPROBE_PATH,
the ffmpeg_path config key, or PATH.

Examples:
  cuetrack extract movie.mkv --list
  cuetrack extract movie.mkv --stream 1 -o subs.srt
  cuetrack extract movie.mp4 --via ttml --store`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().
		IntP("stream", "s", 0, "Subtitle stream index (0 = first subtitle stream)")
	extractCmd.Flags().
		String("via", "vtt", "Format ffmpeg converts the stream to (vtt, ttml)")
	extractCmd.Flags().
		StringP("to", "t", "", "Output format (json, yaml, srt, vtt)")
	extractCmd.Flags().
		Bool("list", false, "List the subtitle streams and exit")
	extractCmd.Flags().
		Bool("store", false, "Also write cues to the SQLite database")
	extractCmd.Flags().
		String("database", "", "SQLite database path (default from config)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]

	stream, _ := cmd.Flags().GetInt("stream")
	via, _ := cmd.Flags().GetString("via")
	list, _ := cmd.Flags().GetBool("list")
	persist, _ := cmd.Flags().GetBool("store")

	format, err := track.ParseFormat(via)
	if err != nil {
		return err
	}

	extractor, err := media.NewExtractor(cfg.FFmpegPath, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if list {
		streams, err := extractor.Streams(ctx, mediaPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(streams) == 0 {
			fmt.Fprintln(out, "No subtitle streams found")
			return nil
		}
		for _, s := range streams {
			fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", s.Index, s.Codec, s.Language, s.Title)
		}
		return nil
	}

	logger.Infow("Extracting subtitles",
		"media", mediaPath,
		"stream", stream,
		"via", string(format),
	)

	data, err := extractor.Extract(ctx, mediaPath, stream, format)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	var db *store.Store
	if persist {
		db, err = openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	source := fmt.Sprintf("%s#s:%d", mediaPath, stream)
	result, err := parseDocument(ctx, format, data, source, db)
	if err != nil {
		return err
	}
	defer result.track.Close()

	logger.Infow("Extraction complete",
		"track_id", result.track.ID().String(),
		"cues", len(result.cues),
	)
	return writeCues(cmd, result.cues)
}
