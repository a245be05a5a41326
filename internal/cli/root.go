package cli

import (
	"github.com/joho/godotenv"
	"github.com/mgpai22/cuetrack/internal/config"
	"github.com/mgpai22/cuetrack/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cuetrack",
	Short: "Timed subtitle cue engine for WebVTT and TTML",
	Long: `Cuetrack parses WebVTT and TTML subtitle tracks into timed cues.

TTML paragraphs are resolved into non-overlapping cues, WebVTT cues keep
their inline karaoke timestamps and regions. Cues can be exported, queried
at a media time or stored in SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		// .env is optional, the process environment wins
		if err := godotenv.Load(); err == nil {
			logger.Debugw("Loaded environment from .env")
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path (default stdout)")
}
