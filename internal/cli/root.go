// internal/cli/root.go
package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "brandpulse",
	Short: "Monitor how AI assistants talk about your brand",
	Long: `brandpulse sends buyer-intent prompts to configured AI models, extracts
brand and competitor mentions with their rank positions from the answers, and
stores everything for reporting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).
			With().Timestamp().Logger()
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "brandpulse.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
