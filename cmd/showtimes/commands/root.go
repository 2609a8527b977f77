package commands

import (
	"context"

	"showtimes-scraper/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "showtimes",
	Short: "showtimes is a CLI for scraping cinema showtimes from cineman.ch.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file, a <name>.local.json5 next to it overrides its fields.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs.")
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
