package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/calendar"
)

func TestParse_ValidISO(t *testing.T) {
	d := calendar.Parse("2025-12-25", time.UTC)

	require.True(t, d.Valid())
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.December, d.Month())
	assert.Equal(t, 25, d.Day())
	assert.Equal(t, "2025-12-25", d.String())
}

func TestParse_Invalid_ReturnsZero(t *testing.T) {
	for _, s := range []string{"", "not-a-date", "2025-13-01", "2025-02-30", "12/25/2025"} {
		d := calendar.Parse(s, time.UTC)
		assert.False(t, d.Valid(), "input %q", s)
		assert.Equal(t, "", d.String())
	}
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	// GIVEN: A location with a spring-forward transition (23-hour day)
	// WHEN: Counting days across it
	// THEN: The result is still a whole number of days
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	before := calendar.NewDate(2025, time.March, 8, loc)
	after := calendar.NewDate(2025, time.March, 10, loc)
	assert.Equal(t, 2, calendar.DaysBetween(before, after))

	fallBefore := calendar.NewDate(2025, time.November, 1, loc)
	fallAfter := calendar.NewDate(2025, time.November, 3, loc)
	assert.Equal(t, 2, calendar.DaysBetween(fallBefore, fallAfter))
	assert.Equal(t, -2, calendar.DaysBetween(fallAfter, fallBefore))
}

func TestDaysBetween_InvalidIsZero(t *testing.T) {
	d := calendar.Parse("2025-01-01", time.UTC)
	assert.Equal(t, 0, calendar.DaysBetween(calendar.Date{}, d))
	assert.Equal(t, 0, calendar.DaysBetween(d, calendar.Date{}))
}

func TestDate_EqualIgnoresTimeOfDay(t *testing.T) {
	a := calendar.Date{Time: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)}
	b := calendar.Date{Time: time.Date(2025, 7, 4, 17, 30, 0, 0, time.UTC)}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(calendar.Date{}))
	assert.Equal(t, 0, calendar.DaysBetween(a, b))
}

func TestDate_AddDaysAndOrdering(t *testing.T) {
	d := calendar.Parse("2025-12-31", time.UTC)
	next := d.AddDays(1)

	assert.Equal(t, "2026-01-01", next.String())
	assert.True(t, d.Before(next))
	assert.True(t, next.After(d))
	assert.False(t, d.Before(d))
	assert.Equal(t, 365, calendar.DaysBetween(d, d.AddDays(365)))
}

func TestDate_TextRoundTrip(t *testing.T) {
	var d calendar.Date
	require.NoError(t, d.UnmarshalText([]byte("2026-02-14")))
	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2026-02-14", string(out))

	assert.Error(t, d.UnmarshalText([]byte("garbage")))
}
