package commands

import (
	"log/slog"
	"os"

	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/internal/scrapers/cineman"

	"github.com/spf13/cobra"
)

var (
	fetchCities []string
	fetchOut    string
)

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchCities, "cities", nil, "The cities to filter showtimes to, overrides the config.")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "showtimes.html", "The file to write the rendered markup to.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--cities <a,b>] [--out <path/to/page.html>]",
	Short: "Renders the showtimes page of the configured cities and saves its markup without parsing it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		cities := cfg.Cities
		if len(fetchCities) > 0 {
			cities = fetchCities
		}

		fetcher := cineman.NewFetcher(cfg.fetchOptions(), telemetry.SlogAPI{})
		markup, err := fetcher.Fetch(cmd.Context(), cities)
		if err != nil {
			return err
		}

		err = os.WriteFile(fetchOut, []byte(markup), 0644)
		if err != nil {
			return err
		}
		slog.Info("wrote markup", "path", fetchOut, "bytes", len(markup))
		return nil
	},
}
