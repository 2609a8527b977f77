package table

import (
	"strconv"

	"showtimes-scraper/internal/geocode"
)

// Columns is the header of every table written, in order.
var Columns = []string{
	"movie",
	"genre",
	"age_limit",
	"language",
	"showtime",
	"date",
	"cinema",
	"place",
	"dt_showtime",
	"cinema_place",
	"latitude",
	"longitude",
}

// the layout timestamps are written in
const timestampLayout = "2006-01-02 15:04:05"

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Record renders row as one cell per column of Columns, unknown coordinates are empty.
func Record(row geocode.EnrichedRow) []string {
	latitude := ""
	longitude := ""
	if row.Location != nil {
		latitude = formatFloat(row.Location.Latitude)
		longitude = formatFloat(row.Location.Longitude)
	}
	return []string{
		row.Movie,
		row.Genre,
		row.AgeLimit,
		row.Language,
		row.Showtime,
		row.Date.String(),
		row.Cinema,
		row.Place,
		row.DtShowtime.Format(timestampLayout),
		row.CinemaPlace,
		latitude,
		longitude,
	}
}
