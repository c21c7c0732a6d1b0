/*
projector.go - One-year event timeline

PURPOSE:
  Combines an attendance snapshot and the holiday index into a set of dated
  markers over a fixed forward horizon, each with an axis position.

HORIZON:
  [today, today+365 days], both ends inclusive.

MARKERS (emission order, never sorted):
  1. today              always, offset 0, 0%
  2. warningExpiration  oldest warning expiration, if valid and in horizon
  3. simulatedCallout   one per valid in-horizon simulated date, snapshot order
  4. holiday            one per UpcomingWithin(365, today), index order

POSITION:
  pct = clamp(0, 100, offset / DaysBetween(today, end) * 100)
  A degenerate horizon (end == today) uses a denominator of 1.

SEE ALSO:
  - holiday/index.go: UpcomingWithin
  - policy/policy.go: ClampPct
*/
package timeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/policy"
)

// HorizonDays is the forward window of a projection.
const HorizonDays = 365

type Kind string

const (
	KindToday             Kind = "today"
	KindWarningExpiration Kind = "warningExpiration"
	KindSimulatedCallout  Kind = "simulatedCallout"
	KindHoliday           Kind = "holiday"
)

// Marker is a read-only projection value.
type Marker struct {
	Kind   Kind
	Label  string
	Date   calendar.Date
	Offset int             // whole days after today
	Pct    decimal.Decimal // axis position in [0, 100]
}

// Timeline is the result of a projection.
type Timeline struct {
	Start   calendar.Date
	End     calendar.Date
	Markers []Marker
}

// Chronological returns the markers sorted by date. Markers on the same day
// keep their emission order.
func (t Timeline) Chronological() []Marker {
	out := append([]Marker(nil), t.Markers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// UpcomingLookup is the part of the holiday index the projector reads.
type UpcomingLookup interface {
	UpcomingWithin(days int, from calendar.Date) []holiday.Holiday
}

// =============================================================================
// PROJECTOR
// =============================================================================

type Projector struct {
	Holidays UpcomingLookup
	Location *time.Location

	// Horizon overrides HorizonDays when positive. Zero means the default;
	// a negative value collapses the horizon to today alone.
	Horizon int

	// Now is the clock used when today is invalid. Defaults to time.Now.
	Now func() time.Time
}

// Project builds the marker set for today. Pure for a fixed holiday index.
func (p *Projector) Project(today calendar.Date, snap attendance.Snapshot) Timeline {
	if !today.Valid() {
		today = p.today()
	}
	horizon := HorizonDays
	switch {
	case p.Horizon > 0:
		horizon = p.Horizon
	case p.Horizon < 0:
		horizon = 0
	}
	end := today.AddDays(horizon)

	denom := calendar.DaysBetween(today, end)
	if denom <= 0 {
		denom = 1
	}
	scale := decimal.NewFromInt(int64(denom))

	tl := Timeline{Start: today, End: end}
	add := func(kind Kind, label string, date calendar.Date) {
		offset := calendar.DaysBetween(today, date)
		pct := decimal.NewFromInt(int64(offset)).Mul(decimal.NewFromInt(100)).Div(scale)
		tl.Markers = append(tl.Markers, Marker{
			Kind:   kind,
			Label:  label,
			Date:   date,
			Offset: offset,
			Pct:    policy.ClampPct(pct).Round(4),
		})
	}
	inHorizon := func(d calendar.Date) bool {
		return d.Valid() && !d.Before(today) && !d.After(end)
	}

	add(KindToday, "Today", today)

	if exp := calendar.Parse(snap.OldestWarningExpires, p.location()); inHorizon(exp) {
		add(KindWarningExpiration, "Oldest warning expires", exp)
	}

	for _, s := range snap.SimDates {
		if d := calendar.Parse(s, p.location()); inHorizon(d) {
			add(KindSimulatedCallout, "Simulated absence", d)
		}
	}

	if p.Holidays != nil {
		for _, h := range p.Holidays.UpcomingWithin(horizon, today) {
			add(KindHoliday, h.Name, h.Date)
		}
	}
	return tl
}

func (p *Projector) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p *Projector) today() calendar.Date {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return calendar.FromTime(now().In(p.location()))
}
