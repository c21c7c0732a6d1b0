// Package calendar provides the calendar-day value used across the engine.
//
// A Date is always midnight in some location. Arithmetic and comparison work
// on whole calendar days, never on time-of-day.
package calendar

import (
	"fmt"
	"math"
	"time"
)

// ISOLayout is the YYYY-MM-DD wire format for dates.
const ISOLayout = "2006-01-02"

// =============================================================================
// DATE - Calendar day at local midnight
// =============================================================================

// Date is a calendar day. The zero value is an invalid (absent) date.
type Date struct {
	Time time.Time
}

// NewDate returns midnight of the given day in loc (nil = time.Local).
func NewDate(year int, month time.Month, day int, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// FromTime truncates t to midnight of its own calendar day.
func FromTime(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day(), t.Location())
}

// Parse reads a YYYY-MM-DD string at midnight in loc (nil = time.Local).
// Anything unparsable yields the zero Date.
func Parse(s string, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ISOLayout, s, loc)
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

// Valid reports whether d holds a real day.
func (d Date) Valid() bool { return !d.Time.IsZero() }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, d.Time.Location())
}

// Comparison
func (d Date) Equal(other Date) bool {
	if !d.Valid() || !other.Valid() {
		return false
	}
	return d.Time.Year() == other.Time.Year() &&
		d.Time.Month() == other.Time.Month() &&
		d.Time.Day() == other.Time.Day()
}
func (d Date) Before(other Date) bool { return DaysBetween(d, other) > 0 }
func (d Date) After(other Date) bool  { return DaysBetween(d, other) < 0 }

// Arithmetic
func (d Date) AddDays(n int) Date {
	if !d.Valid() {
		return d
	}
	return Date{Time: d.normalize().AddDate(0, 0, n)}
}

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }

func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Time.Format(ISOLayout)
}

// MarshalText writes the ISO form; an invalid date writes an empty string.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the ISO form at midnight in time.Local.
func (d *Date) UnmarshalText(b []byte) error {
	parsed := Parse(string(b), nil)
	if !parsed.Valid() {
		return fmt.Errorf("invalid date %q (use YYYY-MM-DD)", string(b))
	}
	*d = parsed
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the whole-day difference to - from. The raw duration is
// rounded to the nearest 24h period so a DST transition inside the range
// (a 23h or 25h day) never produces a fractional result.
// Returns 0 if either date is invalid.
func DaysBetween(from, to Date) int {
	if !from.Valid() || !to.Valid() {
		return 0
	}
	hours := to.normalize().Sub(from.normalize()).Hours()
	return int(math.Round(hours / 24))
}
