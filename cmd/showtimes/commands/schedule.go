package commands

import (
	"log/slog"
	"time"

	"showtimes-scraper/internal/components/chrono"
	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/internal/notify"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Runs the scrape command on the cron schedule of the config until interrupted.",
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

		var mailer *notify.Mailer
		if cfg.Smtp.Enabled() {
			m := notify.NewMailer(cfg.Smtp)
			mailer = &m
		}

		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx, tel, time.Minute)

		clock := newClock()
		cron := chrono.NewStandardCron(tel, clock.Location())
		err = cron.Cron(cfg.Cron, func() {
			result, err := p.Run(ctx, options)
			if err != nil {
				tel.ReportBroken("schedule.scrape", err)
				if mailer != nil {
					notifyErr := mailer.NotifyFailure(ctx, clock.Now(), options.Cities, err)
					if notifyErr != nil {
						tel.ReportBroken("schedule.notify", notifyErr)
					}
				}
				return
			}
			slog.Info("wrote showtimes", "date", result.Date.String(), "rows", len(result.Rows), "path", options.CsvPath)
		})
		if err != nil {
			cron.Stop()
			return err
		}

		slog.Info("waiting for schedule", "cron", cfg.Cron)
		<-ctx.Done()
		slog.Info("stopping, waiting for the running scrape to finish")
		<-cron.Stop().Done()
		return nil
	},
}
