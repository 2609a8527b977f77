package geocode

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"showtimes-scraper/internal/components/assert"
	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/lib/restyutil"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	report_places_geocode = "places.geocode"
)

const DefaultPlacesEndpoint = "https://maps.googleapis.com/maps/api/place/textsearch/json"

var tracer = otel.Tracer("showtimes.geocode")

type PlacesOptions struct {
	Endpoint string
	Key      string
	// RequestsPerSecond limits the rate of lookups, 0 means unlimited.
	RequestsPerSecond float64
	// MaxRetries is the amount of additional attempts after a transient failure,
	// a query without results is never retried.
	MaxRetries uint64
	Timeout    time.Duration
	// DumpOutput receives every request/response pair when set.
	DumpOutput telemetry.MessageOutput
}

// PlacesClient geocodes with the text search endpoint of the google places api.
type PlacesClient struct {
	http       *resty.Client
	endpoint   string
	key        string
	maxRetries uint64
	tel        telemetry.API
}

func NewPlacesClient(options PlacesOptions, tel telemetry.API) PlacesClient {
	assert.NotNil("places telemetry", tel)
	assert.NotEmptyStr("places api key", options.Key)

	tel = telemetry.NewScopedAPI("geocode", tel)

	if options.Endpoint == "" {
		options.Endpoint = DefaultPlacesEndpoint
	}
	if options.Timeout == 0 {
		options.Timeout = 30 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetTimeout(options.Timeout)
	httpClient.SetHeader("accept", "application/json")

	if options.RequestsPerSecond > 0 {
		// burst of 1 spaces requests evenly
		rateLimiter := rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	var format telemetry.FormatMessage
	if options.DumpOutput != nil {
		format = restyutil.FormatHttpMessage
	}
	telemetry.InstrumentResty(httpClient, tel, options.DumpOutput, format)

	return PlacesClient{
		http:       httpClient,
		endpoint:   options.Endpoint,
		key:        options.Key,
		maxRetries: options.MaxRetries,
		tel:        tel,
	}
}

type placesLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type placesResult struct {
	Geometry struct {
		Location placesLocation `json:"location"`
	} `json:"geometry"`
}

type placesResponse struct {
	Results      []placesResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

func (c PlacesClient) Geocode(ctx context.Context, query string) (Coordinates, error) {
	ctx, span := tracer.Start(ctx, "Geocode")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	coords, err := backoff.RetryNotifyWithData(
		func() (Coordinates, error) {
			return c.geocodeOnce(ctx, query)
		},
		policy,
		func(err error, wait time.Duration) {
			c.tel.ReportWarning(report_places_geocode, fmt.Errorf("retrying in %s: %w", wait, err), query)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocode failed")
		c.tel.ReportBroken(report_places_geocode, err, query)
		return Coordinates{}, err
	}

	span.SetAttributes(
		attribute.Float64("latitude", coords.Latitude),
		attribute.Float64("longitude", coords.Longitude),
	)
	return coords, nil
}

func (c PlacesClient) geocodeOnce(ctx context.Context, query string) (Coordinates, error) {
	var payload placesResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query": query,
			"key":   c.key,
		}).
		SetResult(&payload).
		Get(c.endpoint)
	if err != nil {
		return Coordinates{}, fmt.Errorf("request: %w", restyutil.RedactError(err))
	}

	if res.StatusCode() >= http.StatusInternalServerError || res.StatusCode() == http.StatusTooManyRequests {
		return Coordinates{}, fmt.Errorf("provider responded with status %d", res.StatusCode())
	}
	if res.IsError() {
		return Coordinates{}, backoff.Permanent(fmt.Errorf("provider responded with status %d", res.StatusCode()))
	}

	switch payload.Status {
	case "", "OK", "ZERO_RESULTS":
	case "REQUEST_DENIED":
		return Coordinates{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrCredentials, payload.ErrorMessage))
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return Coordinates{}, fmt.Errorf("provider status %s: %s", payload.Status, payload.ErrorMessage)
	default:
		return Coordinates{}, backoff.Permanent(fmt.Errorf("provider status %s: %s", payload.Status, payload.ErrorMessage))
	}

	if len(payload.Results) == 0 {
		return Coordinates{}, backoff.Permanent(ErrNoResults)
	}

	location := payload.Results[0].Geometry.Location
	return Coordinates{
		Latitude:  location.Lat,
		Longitude: location.Lng,
	}, nil
}
