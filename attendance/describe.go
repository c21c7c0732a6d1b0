package attendance

import (
	"time"

	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/policy"
)

// HolidayLookup is the part of the holiday index a description needs.
type HolidayLookup interface {
	ExactMatch(date calendar.Date) (holiday.Holiday, bool)
	AdjacentMatch(date calendar.Date) (holiday.Holiday, bool)
}

type DateStatus string

const (
	StatusHoliday     DateStatus = "holiday"
	StatusNearHoliday DateStatus = "near_holiday"
	StatusClear       DateStatus = "clear"
	StatusInvalid     DateStatus = "invalid"
)

// Description classifies one candidate call-out date.
type Description struct {
	Date   string
	Status DateStatus

	// At most one of these is set; an exact match wins.
	Holiday     *holiday.Holiday
	NearHoliday *holiday.Holiday

	// AlreadySimulated is true when the date is in the snapshot already, in
	// which case Occurrences equals the current view.
	AlreadySimulated bool

	// Occurrences as they would be with this date simulated.
	Occurrences policy.Occurrences
}

// Describe classifies date against the holiday list and prices it as one
// more simulated call-out. Holiday adjacency never changes the count.
func Describe(date string, snap Snapshot, c policy.Constants, lookup HolidayLookup, loc *time.Location) Description {
	d := calendar.Parse(date, loc)
	desc := Description{Date: date, Status: StatusInvalid}
	if d.Valid() {
		desc.Date = d.String()
	}

	in := snap.Input(loc)
	desc.AlreadySimulated = snap.HasSimDate(desc.Date)
	if !desc.AlreadySimulated {
		in.SimulatedCallouts++
	}
	desc.Occurrences = policy.Compute(c, in)

	if !d.Valid() {
		return desc
	}

	desc.Status = StatusClear
	if lookup == nil {
		return desc
	}
	if h, ok := lookup.ExactMatch(d); ok {
		desc.Status = StatusHoliday
		desc.Holiday = &h
		return desc
	}
	if h, ok := lookup.AdjacentMatch(d); ok {
		desc.Status = StatusNearHoliday
		desc.NearHoliday = &h
	}
	return desc
}

// DescribeAll describes every simulated date of the snapshot, in order.
func DescribeAll(snap Snapshot, c policy.Constants, lookup HolidayLookup, loc *time.Location) []Description {
	out := make([]Description, 0, len(snap.SimDates))
	for _, d := range snap.SimDates {
		out = append(out, Describe(d, snap, c, lookup, loc))
	}
	return out
}
