package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/spf13/cobra"
)

var cuesCmd = &cobra.Command{
	Use:   "cues [track_id]",
	Short: "Read stored tracks and cues back from the database",
	Long: `Without arguments, list the tracks stored by parse --store and
extract --store. With a track id, write that track's cues.

Examples:
  cuetrack cues
  cuetrack cues 3f1c... --run 1 --to srt
  cuetrack cues 3f1c... --at 00:00:05.000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCues,
}

func init() {
	rootCmd.AddCommand(cuesCmd)

	cuesCmd.Flags().
		String("database", "", "SQLite database path (default from config)")
	cuesCmd.Flags().
		StringP("to", "t", "", "Output format (json, yaml, srt, vtt)")
	cuesCmd.Flags().
		Int64("run", -1, "Only cues of this run (-1 = all runs)")
	cuesCmd.Flags().
		String("at", "", "Only cues showing at this media time")
}

func runCues(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if len(args) == 0 {
		tracks, err := db.ListTracks(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tracks: %w", err)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFORMAT\tCUES\tCREATED\tSOURCE")
		for _, t := range tracks {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				t.ID, t.Format, t.CueCount, t.CreatedAt.Format("2006-01-02 15:04:05"), t.Source)
		}
		return w.Flush()
	}

	trackID := args[0]
	runID, _ := cmd.Flags().GetInt64("run")
	at, _ := cmd.Flags().GetString("at")

	var cues []cue.Cue
	if at != "" {
		nowMs, err := parseMediaTime(at)
		if err != nil {
			return err
		}
		cues, err = db.ActiveCues(ctx, trackID, nowMs)
		if err != nil {
			return fmt.Errorf("failed to query cues: %w", err)
		}
		for i := range cues {
			cues[i].OnTime(nowMs)
		}
	} else {
		cues, err = db.ListCues(ctx, trackID, runID)
		if err != nil {
			return fmt.Errorf("failed to query cues: %w", err)
		}
	}

	logger.Infow("Cues loaded", "track_id", trackID, "cues", len(cues))
	return writeCues(cmd, cues)
}
