package chrono

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Location().
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the standard implementation of API using the system clock.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl creates a StandardImpl for the timezone the listings are published in.
func NewStandardImpl() (StandardImpl, error) {
	location, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, it is meant for tests.
type FixedImpl struct {
	Time time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}

func (f FixedImpl) Location() *time.Location {
	return f.Time.Location()
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// Today returns the current calendar date of the clock.
func Today(clock API) Date {
	return DateOf(clock.Now())
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
