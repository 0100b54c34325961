// Package dates handles the YYYY-MM-DD calendar dates used as record keys.
package dates

import (
	"fmt"
	"time"
)

// Layout is the wire and storage format of a calendar date.
const Layout = "2006-01-02"

// Parse parses a YYYY-MM-DD string into midnight UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: %q is not a YYYY-MM-DD date", s)
	}
	return t, nil
}

// Valid reports whether s is a real calendar date in YYYY-MM-DD form.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Format renders t as YYYY-MM-DD in t's own location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Today returns now's date in UTC.
func Today(now time.Time) string {
	return Format(now.UTC())
}

// DaysAgo returns the date n days before now (UTC).
func DaysAgo(now time.Time, n int) string {
	return Format(now.UTC().AddDate(0, 0, -n))
}

// Range returns every date from start to end inclusive. An inverted range
// yields nil.
func Range(start, end string) ([]string, error) {
	s, err := Parse(start)
	if err != nil {
		return nil, err
	}
	e, err := Parse(end)
	if err != nil {
		return nil, err
	}

	var out []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, Format(d))
	}
	return out, nil
}

// DaysBetween returns the number of days from start to end; negative when
// end precedes start.
func DaysBetween(start, end string) (int, error) {
	s, err := Parse(start)
	if err != nil {
		return 0, err
	}
	e, err := Parse(end)
	if err != nil {
		return 0, err
	}
	return int(e.Sub(s).Hours() / 24), nil
}
