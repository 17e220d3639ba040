package model

import (
	"fmt"
	"time"
)

// Date is a calendar date in ISO form ("2006-01-02"), no time component.
// ISO strings order lexicographically, so range comparisons are plain string
// comparisons.
type Date string

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	// Normalize (rejects e.g. "2026-2-3" already, keeps canonical form).
	return Date(t.Format("2006-01-02")), nil
}

func DateOf(t time.Time) Date {
	return Date(t.Format("2006-01-02"))
}

func (d Date) String() string { return string(d) }

func (d Date) Weekday() time.Weekday {
	t, err := time.Parse("2006-01-02", string(d))
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}

func (d Date) AddDays(n int) Date {
	t, err := time.Parse("2006-01-02", string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// In reports whether d falls in the inclusive [from, to] range.
func (d Date) In(from, to Date) bool {
	return d >= from && d <= to
}

// DatesBetween expands the inclusive [from, to] range into individual dates.
func DatesBetween(from, to Date) []Date {
	var out []Date
	for d := from; d <= to; d = d.AddDays(1) {
		out = append(out, d)
		if len(out) > 366 { // guard against inverted or runaway ranges
			break
		}
	}
	return out
}
