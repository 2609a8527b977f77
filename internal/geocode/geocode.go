package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"showtimes-scraper/internal/showtimes"
	"showtimes-scraper/lib/configutil"
)

var (
	// ErrNoResults is returned when the provider has no match for a query.
	ErrNoResults = errors.New("geocode: no results")
	// ErrCredentials is returned when the credentials file is missing or unusable.
	ErrCredentials = errors.New("geocode: invalid credentials")
)

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Geocoder resolves free text (ex. "Arena Zürich") to the coordinates of its first match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Coordinates, error)
}

// Locations maps a cinema_place key to its coordinates.
type Locations map[string]Coordinates

// EnrichedRow is a row with the coordinates of its cinema, Location is nil when unknown.
type EnrichedRow struct {
	showtimes.Row
	Location *Coordinates
}

type Credentials struct {
	Key string `json:"key"`
}

// LoadCredentials reads a json file with a "key" field.
func LoadCredentials(path string) (Credentials, error) {
	creds, err := configutil.ReadConfig[Credentials](path)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %s: %w", ErrCredentials, path, err)
	}
	creds.Key = strings.TrimSpace(creds.Key)
	if creds.Key == "" {
		return Credentials{}, fmt.Errorf("%w: %s: empty key", ErrCredentials, path)
	}
	return creds, nil
}

// UniqueKeys returns every distinct cinema_place of rows in the order they first appear.
func UniqueKeys(rows []showtimes.Row) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, row := range rows {
		if _, ok := seen[row.CinemaPlace]; ok {
			continue
		}
		seen[row.CinemaPlace] = struct{}{}
		keys = append(keys, row.CinemaPlace)
	}
	return keys
}

// Resolve looks up every distinct cinema_place once, any failed lookup fails the resolution.
func Resolve(ctx context.Context, geocoder Geocoder, rows []showtimes.Row) (Locations, error) {
	keys := UniqueKeys(rows)
	locations := make(Locations, len(keys))
	for _, key := range keys {
		coords, err := geocoder.Geocode(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", key, err)
		}
		locations[key] = coords
	}
	return locations, nil
}

// Join attaches coordinates to every row, rows without a location keep a nil Location.
func Join(rows []showtimes.Row, locations Locations) []EnrichedRow {
	out := make([]EnrichedRow, len(rows))
	for i, row := range rows {
		out[i] = EnrichedRow{Row: row}
		coords, ok := locations[row.CinemaPlace]
		if ok {
			out[i].Location = &coords
		}
	}
	return out
}

// Enrich resolves and joins the coordinates of rows.
func Enrich(ctx context.Context, geocoder Geocoder, rows []showtimes.Row) ([]EnrichedRow, Locations, error) {
	locations, err := Resolve(ctx, geocoder, rows)
	if err != nil {
		return nil, nil, err
	}
	return Join(rows, locations), locations, nil
}
