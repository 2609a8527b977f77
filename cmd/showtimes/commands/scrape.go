package commands

import (
	"log/slog"
	"strings"

	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/internal/pipeline"
	"showtimes-scraper/internal/scrapers/cineman"

	"github.com/spf13/cobra"
)

var (
	scrapeCities   []string
	scrapeOut      string
	scrapeSqlite   string
	scrapeDumpHtml string
)

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeCities, "cities", nil, "The cities to filter showtimes to, overrides the config.")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "The csv file to write, overrides the config.")
	scrapeCmd.Flags().StringVar(&scrapeSqlite, "sqlite", "", "Also write the table to this sqlite database.")
	scrapeCmd.Flags().StringVar(&scrapeDumpHtml, "dump-html", "", "Save the fetched markup to this file.")
	rootCmd.AddCommand(scrapeCmd)
}

func newPipeline(cfg Config, tel telemetry.API) (pipeline.Pipeline, error) {
	geocoder, err := cfg.newGeocoder(tel)
	if err != nil {
		return pipeline.Pipeline{}, err
	}
	return pipeline.Pipeline{
		Fetcher:  cineman.NewFetcher(cfg.fetchOptions(), tel),
		Layout:   cineman.NewCinemanLayout(tel),
		Geocoder: geocoder,
		Clock:    newClock(),
		Tel:      tel,
	}, nil
}

// scrapeOptions applies the flags of the scrape command over the config.
func scrapeOptions(cfg Config) pipeline.Options {
	options := pipeline.Options{
		Cities:       cfg.Cities,
		CsvPath:      cfg.OutputPath,
		SqlitePath:   cfg.SqlitePath,
		DumpHtmlPath: cfg.DumpHtml,
	}
	if len(scrapeCities) > 0 {
		options.Cities = scrapeCities
	}
	if scrapeOut != "" {
		options.CsvPath = scrapeOut
	}
	if scrapeSqlite != "" {
		options.SqlitePath = scrapeSqlite
	}
	if scrapeDumpHtml != "" {
		options.DumpHtmlPath = scrapeDumpHtml
	}
	return options
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--cities <a,b>] [--out <path/to/output.csv>] [--sqlite <path/to/output.db>]",
	Short: "Fetches, parses and geocodes the showtimes of the configured cities and writes them to a csv.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		tel := telemetry.SlogAPI{}
		p, err := newPipeline(cfg, tel)
		if err != nil {
			return err
		}

		options := scrapeOptions(cfg)
		slog.Info("scraping showtimes", "cities", strings.Join(options.Cities, ", "))

		result, err := p.Run(cmd.Context(), options)
		if err != nil {
			return err
		}
		slog.Info(
			"wrote showtimes",
			"date", result.Date.String(),
			"rows", len(result.Rows),
			"cinemas", len(result.Locations),
			"path", options.CsvPath,
		)
		return nil
	},
}
