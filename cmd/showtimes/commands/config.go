package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"showtimes-scraper/internal/components/chrono"
	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/internal/geocode"
	"showtimes-scraper/internal/notify"
	"showtimes-scraper/internal/scrapers/cineman"
	"showtimes-scraper/lib/configutil"
	"showtimes-scraper/lib/restyutil"
)

type BrowserConfig struct {
	ShowWindow         bool   `json:"show_window"`
	ExecPath           string `json:"exec_path"`
	UserAgent          string `json:"user_agent"`
	AdWaitSeconds      int    `json:"ad_wait_seconds"`
	ConsentWaitSeconds int    `json:"consent_wait_seconds"`
	TimeoutSeconds     int    `json:"timeout_seconds"`
	MaxRetries         uint64 `json:"max_retries"`
}

type GeocoderConfig struct {
	Endpoint          string  `json:"endpoint"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	MaxRetries        uint64  `json:"max_retries"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
}

type Config struct {
	BaseUrl         string   `json:"base_url"`
	Cities          []string `json:"cities"`
	CredentialsPath string   `json:"credentials_path"`
	OutputPath      string   `json:"output_path"`
	SqlitePath      string   `json:"sqlite_path"`
	DumpHtml        string   `json:"dump_html"`
	// DebugHttpDir receives a dump of every geocoding request when set.
	DebugHttpDir string         `json:"debug_http_dir"`
	Browser      BrowserConfig  `json:"browser"`
	Geocoder     GeocoderConfig `json:"geocoder"`
	// Cron is the schedule of the schedule command, in the standard 5 field format.
	Cron string `json:"cron"`
	// Smtp is optional, when set failed scheduled runs are mailed to its recipients.
	Smtp notify.SmtpConfig `json:"smtp"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config](configPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = "credentials.json5"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "showtimes.csv"
	}
	if cfg.Cron == "" {
		cfg.Cron = "0 6 * * *"
	}
	return cfg, nil
}

func (c Config) fetchOptions() cineman.FetchOptions {
	return cineman.FetchOptions{
		BaseUrl:     c.BaseUrl,
		AdWait:      seconds(c.Browser.AdWaitSeconds),
		ConsentWait: seconds(c.Browser.ConsentWaitSeconds),
		Timeout:     seconds(c.Browser.TimeoutSeconds),
		MaxRetries:  c.Browser.MaxRetries,
		Browser: cineman.BrowserOptions{
			ShowWindow: c.Browser.ShowWindow,
			ExecPath:   c.Browser.ExecPath,
			UserAgent:  c.Browser.UserAgent,
		},
	}
}

// placesKeyEnv overrides the key of the credentials file, it may also be set in a .env file.
const placesKeyEnv = "SHOWTIMES_PLACES_KEY"

func (c Config) placesKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(placesKeyEnv))
	if key != "" {
		return key, nil
	}
	creds, err := geocode.LoadCredentials(c.CredentialsPath)
	if err != nil {
		return "", err
	}
	return creds.Key, nil
}

func (c Config) newGeocoder(tel telemetry.API) (geocode.PlacesClient, error) {
	key, err := c.placesKey()
	if err != nil {
		return geocode.PlacesClient{}, err
	}

	var dump telemetry.MessageOutput
	if c.DebugHttpDir != "" {
		output, err := restyutil.NewFilesystemOutput(c.DebugHttpDir)
		if err != nil {
			return geocode.PlacesClient{}, fmt.Errorf("debug http dir: %w", err)
		}
		slog.Info("dumping geocoding requests", "dir", output.Dir())
		dump = output
	}

	return geocode.NewPlacesClient(geocode.PlacesOptions{
		Endpoint:          c.Geocoder.Endpoint,
		Key:               key,
		RequestsPerSecond: c.Geocoder.RequestsPerSecond,
		MaxRetries:        c.Geocoder.MaxRetries,
		Timeout:           seconds(c.Geocoder.TimeoutSeconds),
		DumpOutput:        dump,
	}, tel), nil
}

func newClock() chrono.StandardImpl {
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		// tzdata is embedded, this only fails on a broken build
		panic(err)
	}
	return clock
}
