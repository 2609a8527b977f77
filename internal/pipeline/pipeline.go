package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"showtimes-scraper/internal/components/assert"
	"showtimes-scraper/internal/components/chrono"
	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/internal/geocode"
	"showtimes-scraper/internal/scrapers/cineman"
	"showtimes-scraper/internal/showtimes"
	"showtimes-scraper/internal/table"
	"showtimes-scraper/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_pipeline_run           = "pipeline.run"
	report_pipeline_empty_listing = "pipeline.empty-listing"
	report_pipeline_coverage      = "pipeline.coverage"
)

// CoverageThreshold is the lowest similarity between a requested city and a row's place
// for the city to count as covered.
const CoverageThreshold = 0.85

var tracer = otel.Tracer("showtimes.pipeline")

// Fetcher returns the rendered markup of the showtimes page for a set of cities.
type Fetcher interface {
	Fetch(ctx context.Context, cities []string) (string, error)
}

type Pipeline struct {
	Fetcher  Fetcher
	Layout   cineman.Layout
	Geocoder geocode.Geocoder
	Clock    chrono.API
	Tel      telemetry.API
}

type Options struct {
	Cities []string
	// CsvPath is overwritten with the enriched table.
	CsvPath string
	// SqlitePath is optional, when set the table is also written to a sqlite database.
	SqlitePath string
	// DumpHtmlPath is optional, when set the fetched markup is saved there before parsing.
	DumpHtmlPath string
}

type Result struct {
	Date      chrono.Date
	Rows      []geocode.EnrichedRow
	Locations geocode.Locations
}

func (p Pipeline) tel() telemetry.API {
	assert.NotNil("pipeline telemetry", p.Tel)
	return telemetry.NewScopedAPI("pipeline", p.Tel)
}

// Run fetches, parses, enriches and writes one snapshot of the showtimes.
// Nothing is written unless every stage before the writers succeeded.
func (p Pipeline) Run(ctx context.Context, options Options) (Result, error) {
	assert.NotNil("pipeline fetcher", p.Fetcher)
	assert.NotEmptyStr("csv path", options.CsvPath)

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("cities", options.Cities))

	tel := p.tel()
	start := time.Now()

	markup, err := p.Fetcher.Fetch(ctx, options.Cities)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return Result{}, fmt.Errorf("fetch: %w", err)
	}
	if options.DumpHtmlPath != "" {
		err = os.WriteFile(options.DumpHtmlPath, []byte(markup), 0644)
		if err != nil {
			tel.ReportWarning(report_pipeline_run, fmt.Errorf("dump html: %w", err))
		}
	}

	result, err := p.RunMarkup(ctx, markup, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "process failed")
		return Result{}, err
	}
	p.Coverage(options.Cities, result.Rows)

	err = Write(ctx, result.Rows, options.CsvPath, options.SqlitePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return Result{}, err
	}

	tel.ReportCount(report_pipeline_run, int64(len(result.Rows)))
	tel.ReportDebug("finished run", "rows", len(result.Rows), "seconds", time.Since(start).Seconds())
	return result, nil
}

// RunMarkup turns already fetched markup into the enriched table, when enrich is false
// no coordinates are looked up and every row has a nil Location.
func (p Pipeline) RunMarkup(ctx context.Context, markup string, enrich bool) (Result, error) {
	assert.NotNil("pipeline layout", p.Layout)
	assert.NotNil("pipeline clock", p.Clock)

	tel := p.tel()
	date := chrono.Today(p.Clock)

	records, err := cineman.ExtractHTML(p.Layout, markup, date)
	if err != nil {
		return Result{}, fmt.Errorf("extract: %w", err)
	}
	for _, record := range records {
		if len(record.Cinemas) == 0 {
			tel.ReportWarning(report_pipeline_empty_listing, record.Movie)
		}
	}

	rows, err := showtimes.Expand(records)
	if err != nil {
		return Result{}, fmt.Errorf("normalize: %w", err)
	}
	tel.ReportDebug("normalized rows", "records", len(records), "rows", len(rows))

	if !enrich {
		return Result{
			Date: date,
			Rows: geocode.Join(rows, nil),
		}, nil
	}

	assert.NotNil("pipeline geocoder", p.Geocoder)
	enriched, locations, err := geocode.Enrich(ctx, p.Geocoder, rows)
	if err != nil {
		return Result{}, fmt.Errorf("enrich: %w", err)
	}
	return Result{
		Date:      date,
		Rows:      enriched,
		Locations: locations,
	}, nil
}

// Write writes rows to the csv at csvPath and, if sqlitePath is not empty, the sqlite database at sqlitePath.
// The csv only replaces the previous one once the sqlite transaction committed,
// so a failed write leaves both sinks as they were.
func Write(ctx context.Context, rows []geocode.EnrichedRow, csvPath, sqlitePath string) error {
	pending, err := table.PrepareCSV(csvPath, rows)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	defer pending.Discard()

	if sqlitePath != "" {
		err = table.WriteSQLite(ctx, sqlitePath, rows)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	err = pending.Commit()
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Coverage reports every requested city that no row's place resembles and returns them.
// A listing filtered to a city can still lack it, so this only warns.
func (p Pipeline) Coverage(cities []string, rows []geocode.EnrichedRow) []string {
	places := make(map[string]struct{})
	for _, row := range rows {
		places[row.Place] = struct{}{}
	}

	var missing []string
	for _, city := range textutil.DedupeNames(cities) {
		best := 0.0
		for place := range places {
			score := textutil.Similarity(city, place)
			if score > best {
				best = score
			}
		}
		if best < CoverageThreshold {
			missing = append(missing, city)
		}
	}

	if len(missing) > 0 {
		p.tel().ReportWarning(report_pipeline_coverage, "no showtimes for cities", missing)
	}
	return missing
}
