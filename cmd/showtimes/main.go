package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"showtimes-scraper/cmd/showtimes/commands"
	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/lib/serviceutil"

	"github.com/joho/godotenv"
)

func main() {
	telemetry.InitSlog(false)

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}

	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()

	otel, err := telemetry.SetupFromEnv(ctx, "showtimes")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	// cobra already printed the error
	cmdErr := commands.ExecuteContext(ctx)

	err = otel.Shutdown(context.Background())
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
	if cmdErr != nil {
		os.Exit(1)
	}
}
