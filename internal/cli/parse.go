package cli

import (
	"context"
	"fmt"

	"github.com/mgpai22/cuetrack/internal/store"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [subtitle_file]",
	Short: "Parse a WebVTT or TTML file into cues",
	Long: `Parse a subtitle file and write its resolved cues.

The input format is detected from the extension or the first bytes unless
--format is given. Overlapping TTML paragraphs are split into
non-overlapping cues.

Examples:
  cuetrack parse movie.vtt
  cuetrack parse captions.ttml -o captions.srt
  cuetrack parse stream.dat --format ttml --to yaml --store`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().
		StringP("format", "f", "", "Input format (vtt, ttml); detected when empty")
	parseCmd.Flags().
		StringP("to", "t", "", "Output format (json, yaml, srt, vtt)")
	parseCmd.Flags().
		Int("chunk-size", 0, "Bytes per chunk fed to the track (default from config)")
	parseCmd.Flags().
		Bool("store", false, "Also write cues to the SQLite database")
	parseCmd.Flags().
		String("database", "", "SQLite database path (default from config)")
}

func runParse(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if chunkSize, _ := cmd.Flags().GetInt("chunk-size"); chunkSize > 0 {
		cfg.ChunkSize = chunkSize
	}

	data, err := readInput(inputPath)
	if err != nil {
		return err
	}
	format, err := inputFormat(cmd, inputPath, data)
	if err != nil {
		return err
	}

	ctx := context.Background()

	persist, _ := cmd.Flags().GetBool("store")
	var db *store.Store
	if persist {
		db, err = openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	result, err := parseDocument(ctx, format, data, inputPath, db)
	if err != nil {
		return err
	}
	defer result.track.Close()

	logger.Infow("Parse complete",
		"track_id", result.track.ID().String(),
		"cues", len(result.cues),
	)
	if persist {
		fmt.Fprintf(cmd.ErrOrStderr(), "Stored track %s (%d cues)\n", result.track.ID(), len(result.cues))
	}

	return writeCues(cmd, result.cues)
}
