package showtimes

import (
	"errors"
	"fmt"
	"time"

	"showtimes-scraper/internal/components/chrono"
	"showtimes-scraper/internal/scrapers/cineman"
)

// DtShowtimeLayout is the layout the scrape date and showtime are joined into before parsing.
const DtShowtimeLayout = "2006-01-02 15:4"

var (
	// ErrParse is returned when a showtime cannot be turned into a timestamp.
	ErrParse = errors.New("showtimes: parse failure")
	// ErrLengthMismatch is returned when lists that are expanded together differ in length.
	ErrLengthMismatch = errors.New("showtimes: list length mismatch")
)

// Row is a single screening: one movie in one cinema at one time in one language.
type Row struct {
	Movie    string
	Genre    string
	AgeLimit string
	Cinema   string
	Place    string
	Showtime string
	Language string
	Date     chrono.Date

	DtShowtime  time.Time
	CinemaPlace string
}

// LengthMismatchError describes which lists of which movie could not be paired.
type LengthMismatchError struct {
	Movie  string
	Field  string
	Counts []int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: %q: %s counts %v", ErrLengthMismatch.Error(), e.Movie, e.Field, e.Counts)
}

func (e *LengthMismatchError) Unwrap() error {
	return ErrLengthMismatch
}

// CinemaPlace is the key a cinema is geocoded by.
func CinemaPlace(cinema, place string) string {
	return cinema + " " + place
}

// ParseDtShowtime combines the scrape date with a HH:MM showtime, the result is in UTC.
func ParseDtShowtime(date chrono.Date, showtime string) (time.Time, error) {
	value := date.String() + " " + showtime
	t, err := time.Parse(DtShowtimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrParse, value, err)
	}
	return t, nil
}

// Expand flattens records into rows. Each cinema is first paired with its own place,
// showtimes and languages, then each showtime is paired with the language at the same
// position. Lists that should be paired but differ in length fail the whole expansion.
func Expand(records []cineman.Record) ([]Row, error) {
	var rows []Row
	for _, record := range records {
		expanded, err := expandRecord(record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, expanded...)
	}
	return rows, nil
}

func expandRecord(record cineman.Record) ([]Row, error) {
	cinemaCount := len(record.Cinemas)
	if len(record.Places) != cinemaCount ||
		len(record.Showtimes) != cinemaCount ||
		len(record.Languages) != cinemaCount {
		return nil, &LengthMismatchError{
			Movie: record.Movie,
			Field: "cinemas/places/showtimes/languages",
			Counts: []int{
				cinemaCount,
				len(record.Places),
				len(record.Showtimes),
				len(record.Languages),
			},
		}
	}

	var rows []Row
	for i, cinema := range record.Cinemas {
		showtimes := record.Showtimes[i]
		languages := record.Languages[i]
		if len(showtimes) != len(languages) {
			return nil, &LengthMismatchError{
				Movie:  record.Movie,
				Field:  fmt.Sprintf("showtimes/languages of %q", cinema),
				Counts: []int{len(showtimes), len(languages)},
			}
		}

		place := record.Places[i]
		for j, showtime := range showtimes {
			dt, err := ParseDtShowtime(record.Date, showtime)
			if err != nil {
				return nil, err
			}
			rows = append(rows, Row{
				Movie:       record.Movie,
				Genre:       record.Genre,
				AgeLimit:    record.AgeLimit,
				Cinema:      cinema,
				Place:       place,
				Showtime:    showtime,
				Language:    languages[j],
				Date:        record.Date,
				DtShowtime:  dt,
				CinemaPlace: CinemaPlace(cinema, place),
			})
		}
	}
	return rows, nil
}
