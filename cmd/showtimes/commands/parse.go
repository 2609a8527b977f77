package commands

import (
	"fmt"
	"log/slog"
	"os"

	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/internal/pipeline"
	"showtimes-scraper/internal/scrapers/cineman"
	"showtimes-scraper/internal/table"

	"github.com/spf13/cobra"
)

var (
	parseHtml    string
	parseOut     string
	parseSqlite  string
	parseGeocode bool
	parsePreview int
)

func init() {
	parseCmd.Flags().StringVar(&parseHtml, "html", "showtimes.html", "The saved markup to parse.")
	parseCmd.Flags().StringVar(&parseOut, "out", "", "The csv file to write, nothing is written if empty.")
	parseCmd.Flags().StringVar(&parseSqlite, "sqlite", "", "Also write the table to this sqlite database.")
	parseCmd.Flags().BoolVar(&parseGeocode, "geocode", false, "Look up the coordinates of every cinema.")
	parseCmd.Flags().IntVar(&parsePreview, "preview", 0, "Print the first n rows as a table.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse [--html <path/to/page.html>] [--out <path/to/output.csv>] [--geocode] [--preview <n>]",
	Short: "Parses previously fetched markup into the showtimes table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		markup, err := os.ReadFile(parseHtml)
		if err != nil {
			return err
		}

		tel := telemetry.SlogAPI{}
		p := pipeline.Pipeline{
			Layout: cineman.NewCinemanLayout(tel),
			Clock:  newClock(),
			Tel:    tel,
		}
		if parseGeocode {
			cfg, err := readConfig()
			if err != nil {
				return err
			}
			p.Geocoder, err = cfg.newGeocoder(tel)
			if err != nil {
				return err
			}
		}

		result, err := p.RunMarkup(cmd.Context(), string(markup), parseGeocode)
		if err != nil {
			return err
		}
		slog.Info("parsed showtimes", "date", result.Date.String(), "rows", len(result.Rows))

		if parsePreview > 0 {
			table.Preview(os.Stdout, result.Rows, parsePreview)
		}

		if parseOut == "" {
			if parseSqlite != "" {
				return fmt.Errorf("--sqlite requires --out")
			}
			return nil
		}
		err = pipeline.Write(cmd.Context(), result.Rows, parseOut, parseSqlite)
		if err != nil {
			return err
		}
		slog.Info("wrote showtimes", "path", parseOut)
		return nil
	},
}
