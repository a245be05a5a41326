package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var activeCmd = &cobra.Command{
	Use:   "active [subtitle_file]",
	Short: "Show the cues on screen at a media time",
	Long: `Parse a subtitle file and write the cues showing at --at.

Inline WebVTT timestamps are applied, so spans not yet reached are marked
disabled. The time is given in milliseconds or as [hh:]mm:ss.ttt.

Examples:
  cuetrack active movie.vtt --at 00:01:02.500
  cuetrack active captions.ttml --at 62500 --to yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runActive,
}

func init() {
	rootCmd.AddCommand(activeCmd)

	activeCmd.Flags().
		StringP("format", "f", "", "Input format (vtt, ttml); detected when empty")
	activeCmd.Flags().
		StringP("to", "t", "", "Output format (json, yaml, srt, vtt)")
	activeCmd.Flags().
		String("at", "", "Media time (milliseconds or [hh:]mm:ss.ttt)")
	_ = activeCmd.MarkFlagRequired("at")
}

func runActive(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	at, _ := cmd.Flags().GetString("at")
	nowMs, err := parseMediaTime(at)
	if err != nil {
		return err
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
	result, err := parseDocument(ctx, format, data, inputPath, nil)
	if err != nil {
		return err
	}
	defer result.track.Close()

	active, err := result.track.Active(ctx, nowMs)
	if err != nil {
		return fmt.Errorf("failed to query active cues: %w", err)
	}

	logger.Infow("Active cues",
		"at_ms", nowMs,
		"cues", len(active),
	)
	return writeCues(cmd, active)
}
