package cineman

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showtimes-scraper/internal/components/assert"
	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/lib/textutil"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_fetcher_fetch         = "fetcher.fetch"
	report_fetcher_close_browser = "fetcher.close-browser"
)

const DefaultBaseUrl = "https://www.cineman.ch/en/showtimes/city/"

const (
	consentButtonSelector  = ".cc-btn"
	regionDropdownSelector = ".selectize-control"
	regionSaveSelector     = ".select-region-save"

	// the third sorting control sorts by time
	sortByTimeSelector = `(//*[contains(concat(" ", normalize-space(@class), " "), " text-overflow-hidden ")])[3]`

	// the seventh text input on the page is the search field of the region dropdown
	regionInputSelector = `(//input[@type="text"])[7]`
)

var tracer = otel.Tracer("showtimes.scrapers.cineman")

type FetchOptions struct {
	BaseUrl string
	// AdWait is how long to wait for the interstitial advertisement after loading the page.
	AdWait time.Duration
	// ConsentWait is how long to wait after dismissing the cookie banner.
	ConsentWait time.Duration
	// Timeout bounds a single attempt, a control that never appears fails the attempt once it runs out.
	Timeout time.Duration
	// MaxRetries is the amount of additional attempts after a failed one, each with a fresh browser.
	MaxRetries uint64
	Browser    BrowserOptions
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if o.AdWait == 0 {
		o.AdWait = 15 * time.Second
	}
	if o.ConsentWait == 0 {
		o.ConsentWait = 5 * time.Second
	}
	if o.Timeout == 0 {
		o.Timeout = 2 * time.Minute
	}
	return o
}

// Fetcher renders the showtimes page filtered to a set of cities.
type Fetcher struct {
	options     FetchOptions
	tel         telemetry.API
	openBrowser func(ctx context.Context, options BrowserOptions) (*Browser, error)
}

func NewFetcher(options FetchOptions, tel telemetry.API) Fetcher {
	assert.NotNil("fetcher telemetry", tel)
	return Fetcher{
		options:     options.withDefaults(),
		tel:         telemetry.NewScopedAPI("cineman", tel),
		openBrowser: OpenBrowser,
	}
}

// Fetch returns the markup of the showtimes page sorted by time and filtered to cities.
func (f Fetcher) Fetch(ctx context.Context, cities []string) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	cities = textutil.DedupeNames(cities)
	if len(cities) == 0 {
		return "", fmt.Errorf("fetch showtimes: no cities given")
	}
	span.SetAttributes(attribute.StringSlice("cities", cities))

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.options.MaxRetries),
		ctx,
	)
	markup, err := backoff.RetryNotifyWithData(
		func() (string, error) {
			return f.fetchOnce(ctx, cities)
		},
		policy,
		func(err error, wait time.Duration) {
			f.tel.ReportWarning(report_fetcher_fetch, fmt.Errorf("retrying in %s: %w", wait, err))
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		f.tel.ReportBroken(report_fetcher_fetch, err, cities)
		return "", err
	}

	f.tel.ReportDebug("fetched showtimes page", len(markup))
	return markup, nil
}

func (f Fetcher) fetchOnce(ctx context.Context, cities []string) (markup string, err error) {
	browser, err := f.openBrowser(ctx, f.options.Browser)
	if err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		closeErr := browser.Close()
		if closeErr != nil {
			f.tel.ReportWarning(report_fetcher_close_browser, closeErr)
		}
	}()

	runCtx, cancel := context.WithTimeout(browser.Context(), f.options.Timeout)
	defer cancel()

	tasks := chromedp.Tasks{
		chromedp.Navigate(f.options.BaseUrl),
		chromedp.Sleep(f.options.AdWait),
		chromedp.Click(consentButtonSelector, chromedp.ByQuery),
		chromedp.Sleep(f.options.ConsentWait),
		chromedp.Click(sortByTimeSelector, chromedp.BySearch),
		chromedp.Click(regionDropdownSelector, chromedp.ByQuery),
	}
	for _, city := range cities {
		tasks = append(tasks, chromedp.SendKeys(regionInputSelector, city+kb.Enter, chromedp.BySearch))
	}
	tasks = append(
		tasks,
		chromedp.Click(regionSaveSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)

	err = chromedp.Run(runCtx, tasks)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		// chromedp waits for selectors until the context ends, so an expired
		// attempt means some control never showed up
		return "", fmt.Errorf("%w: page controls did not appear within %s: %w", ErrLayoutMismatch, f.options.Timeout, err)
	}
	if err != nil {
		return "", err
	}
	return markup, nil
}
