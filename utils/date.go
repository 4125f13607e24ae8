// utils/date.go
package utils

import (
	"fmt"
	"time"
)

// DayLayout is the canonical calendar-day format used for storage keys and buckets.
const DayLayout = "2006-01-02"

// GermanDayLayout is the DD.MM.YYYY form found in legacy records.
const GermanDayLayout = "02.01.2006"

const isoTimestampLayout = "2006-01-02T15:04:05.000Z"

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// InLocation moves t's calendar date (not its instant) into loc at midnight.
func InLocation(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysAhead returns midnight of the day n days after today.
func DaysAhead(today time.Time, n int) time.Time {
	return StartOfDay(today).AddDate(0, 0, n)
}

// DaysInMonth returns the number of days of month in year, leap years included.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthBounds returns the first instant of the month and the last instant of its last day.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := EndOfDay(time.Date(year, month, DaysInMonth(year, month), 0, 0, 0, 0, loc))
	return start, end
}

// PreviousMonth returns the year and month before the given one.
func PreviousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// IsPast reports whether d lies on a calendar day before today.
func IsPast(d, today time.Time) bool {
	return InLocation(d, today.Location()).Before(StartOfDay(today))
}

// IsFuture reports whether d lies on a calendar day after today.
func IsFuture(d, today time.Time) bool {
	return InLocation(d, today.Location()).After(StartOfDay(today))
}

// FormatDay renders t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a strict YYYY-MM-DD string at midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// ParseGermanDay parses a DD.MM.YYYY string at midnight in loc.
func ParseGermanDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(GermanDayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// ISOTimestamp renders t in UTC with millisecond precision. The fixed width keeps
// lexical order equal to chronological order.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(isoTimestampLayout)
}

// ParseISOTimestamp accepts the ISOTimestamp form and any RFC 3339 variant.
func ParseISOTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
