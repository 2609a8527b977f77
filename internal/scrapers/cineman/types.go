package cineman

import (
	"errors"

	"showtimes-scraper/internal/components/chrono"
)

// ErrLayoutMismatch is returned when an element the page layout should contain is missing.
var ErrLayoutMismatch = errors.New("cineman: layout mismatch")

// Record is everything scraped for one listing block (one movie), before normalization.
//
// Cinemas, Places, Showtimes and Languages are parallel by cinema index as long as
// every cinema produced at least one showtime and one language token.
type Record struct {
	Movie    string
	Genre    string
	AgeLimit string

	Cinemas   []string
	Places    []string
	Showtimes [][]string
	Languages [][]string

	Date chrono.Date
}
