package util

import (
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for every user-facing date.
const DateLayout = "2006-01-02"

// DefaultHistoryStart is the first date of history the dashboard loads.
const DefaultHistoryStart = "2015-01-01"

// DaysPerYear converts a forecast horizon in years to calendar days.
const DaysPerYear = 365

// TruncateDay returns midnight UTC of t's calendar date in loc.
func TruncateDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// HistoryWindow returns the [start, today] range the Home page loads. An
// empty start falls back to DefaultHistoryStart.
func HistoryWindow(start string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if start == "" {
		start = DefaultHistoryStart
	}
	from, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to := TruncateDay(now, loc)
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("history start %s is after %s", start, FormatDate(to))
	}
	return from, to, nil
}

// HorizonDays converts a horizon in years to days.
func HorizonDays(years int) int {
	return years * DaysPerYear
}
