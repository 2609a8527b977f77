package table

import (
	"context"
	"database/sql"
	"fmt"

	"showtimes-scraper/internal/geocode"

	_ "modernc.org/sqlite"
)

const sqliteDrop = `drop table if exists showtimes`

const sqliteCreate = `
create table showtimes (
	movie text not null,
	genre text not null,
	age_limit text not null,
	language text not null,
	showtime text not null,
	date text not null,
	cinema text not null,
	place text not null,
	dt_showtime text not null,
	cinema_place text not null,
	latitude real,
	longitude real
)`

const sqliteInsert = `insert into showtimes (
	movie, genre, age_limit, language, showtime, date,
	cinema, place, dt_showtime, cinema_place, latitude, longitude
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

// WriteSQLite replaces the showtimes table of the database at path with rows.
// The table is dropped and refilled in one transaction, readers never see a partial table.
func WriteSQLite(ctx context.Context, path string, rows []geocode.EnrichedRow) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, sqliteDrop)
	if err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	_, err = tx.ExecContext(ctx, sqliteCreate)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var latitude, longitude *float64
		if row.Location != nil {
			latitude = &row.Location.Latitude
			longitude = &row.Location.Longitude
		}
		_, err = stmt.ExecContext(
			ctx,
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
			nullFloat(latitude),
			nullFloat(longitude),
		)
		if err != nil {
			return fmt.Errorf("insert %q: %w", row.CinemaPlace, err)
		}
	}

	return tx.Commit()
}
