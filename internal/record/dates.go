package record

import (
	"fmt"
	"time"
)

// DateLayout is the stored date format, DD:MM:YYYY.
const DateLayout = "02:01:2006"

// InvalidDate is shown in place of a date that does not parse.
const InvalidDate = "Invalid Date"

// ParseDate parses s strictly as DD:MM:YYYY in the local time zone.
// Day and month must be two digits and the date must exist on the calendar.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("parse date %q: want DD:MM:YYYY", s)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as DD:MM:YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DayName returns the English weekday name of t.
func DayName(t time.Time) string {
	return t.Weekday().String()
}

// Today returns the date and weekday name of now.
func Today(now time.Time) (date, day string) {
	return FormatDate(now), DayName(now)
}
