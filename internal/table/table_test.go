package table

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"showtimes-scraper/internal/components/chrono"
	"showtimes-scraper/internal/geocode"
	"showtimes-scraper/internal/showtimes"

	"github.com/stretchr/testify/require"
)

var testDate = chrono.Date{Year: 2024, Month: time.March, Day: 1}

func enrichedRow(cinema, place, showtime, language string, location *geocode.Coordinates) geocode.EnrichedRow {
	dt, err := showtimes.ParseDtShowtime(testDate, showtime)
	if err != nil {
		panic(err)
	}
	return geocode.EnrichedRow{
		Row: showtimes.Row{
			Movie:       "Dune: Part Two",
			Genre:       "Science Fiction, Adventure",
			AgeLimit:    "Y.12 (14)",
			Cinema:      cinema,
			Place:       place,
			Showtime:    showtime,
			Language:    language,
			Date:        testDate,
			DtShowtime:  dt,
			CinemaPlace: showtimes.CinemaPlace(cinema, place),
		},
		Location: location,
	}
}

func testRows() []geocode.EnrichedRow {
	return []geocode.EnrichedRow{
		enrichedRow("Arena", "Zürich", "18:45", "E/d/f", &geocode.Coordinates{Latitude: 47.3573, Longitude: 8.5233}),
		enrichedRow("Rex", "Bern", "20:00", "D/f", nil),
	}
}

func TestRecord(t *testing.T) {
	rows := testRows()
	require.Equal(t, []string{
		"Dune: Part Two",
		"Science Fiction, Adventure",
		"Y.12 (14)",
		"E/d/f",
		"18:45",
		"2024-03-01",
		"Arena",
		"Zürich",
		"2024-03-01 18:45:00",
		"Arena Zürich",
		"47.3573",
		"8.5233",
	}, Record(rows[0]))
	require.Equal(t, "", Record(rows[1])[10])
	require.Equal(t, "", Record(rows[1])[11])
	require.Len(t, Record(rows[1]), len(Columns))
}

func TestWriteCSVOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "showtimes.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,contents\nfrom,before\nand,more\n"), 0644))

	require.NoError(t, WriteCSV(path, testRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	require.Equal(t, Columns, records[0])
	require.Equal(t, "Science Fiction, Adventure", records[1][1])
	require.Equal(t, "Rex Bern", records[2][9])
	require.Equal(t, "", records[2][10])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteCSVMissingDirectory(t *testing.T) {
	err := WriteCSV(filepath.Join(t.TempDir(), "missing", "showtimes.csv"), testRows())
	require.Error(t, err)
}

func TestPrepareCSVDoesNotTouchTargetUntilCommit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "showtimes.csv")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))

	pending, err := PrepareCSV(path, testRows())
	require.NoError(t, err)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old\n", string(contents))

	pending.Discard()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")

	pending, err = PrepareCSV(path, testRows())
	require.NoError(t, err)
	require.NoError(t, pending.Commit())
	pending.Discard()

	contents, err = os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(contents), strings.Join(Columns, ",")), string(contents))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteSQLiteReplacesTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "showtimes.db")

	require.NoError(t, WriteSQLite(ctx, path, testRows()))
	require.NoError(t, WriteSQLite(ctx, path, testRows()[:1]))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "select count(*) from showtimes").Scan(&count))
	require.Equal(t, 1, count)

	var cinemaPlace, dtShowtime string
	var latitude sql.NullFloat64
	err = db.QueryRowContext(ctx, "select cinema_place, dt_showtime, latitude from showtimes").
		Scan(&cinemaPlace, &dtShowtime, &latitude)
	require.NoError(t, err)
	require.Equal(t, "Arena Zürich", cinemaPlace)
	require.Equal(t, "2024-03-01 18:45:00", dtShowtime)
	require.True(t, latitude.Valid)
	require.InDelta(t, 47.3573, latitude.Float64, 1e-9)
}

func TestWriteSQLiteNullCoordinates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "showtimes.db")
	require.NoError(t, WriteSQLite(ctx, path, testRows()[1:]))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var latitude, longitude sql.NullFloat64
	require.NoError(t, db.QueryRowContext(ctx, "select latitude, longitude from showtimes").Scan(&latitude, &longitude))
	require.False(t, latitude.Valid)
	require.False(t, longitude.Valid)
}

func TestPreview(t *testing.T) {
	var out bytes.Buffer
	Preview(&out, testRows(), 1)

	rendered := out.String()
	require.True(t, strings.Contains(rendered, "Arena Zürich"), rendered)
	require.False(t, strings.Contains(rendered, "Rex Bern"), rendered)
	require.True(t, strings.Contains(rendered, "1 more rows"), rendered)
}
