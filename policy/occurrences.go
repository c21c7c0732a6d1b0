package policy

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/calendar"
)

// Input is the slice of an attendance snapshot the calculator reads.
// Values are expected to be pre-clamped by the state layer.
type Input struct {
	Warnings             int
	ExtraCallouts        int
	SimulatedCallouts    int
	OldestWarningExpires calendar.Date
}

// Occurrences is the derived view of an attendance snapshot.
type Occurrences struct {
	Total     int
	Remaining int
	Risk      RiskLevel

	// MeterPct is Total as a share of MaxSafeOccurrences, in [0, 100].
	MeterPct decimal.Decimal

	// AfterExpiration is nil unless a warning is active and its
	// expiration date is valid.
	AfterExpiration *ExpirationProjection
}

// ExpirationProjection is the headroom once the oldest warning drops off.
type ExpirationProjection struct {
	ExpiresOn      calendar.Date
	WarningsAfter  int
	RemainingAfter int
}

var hundred = decimal.NewFromInt(100)

// Compute derives occurrence totals. Pure: no I/O, no errors.
func Compute(c Constants, in Input) Occurrences {
	maxSafe := c.MaxSafeOccurrences()
	total := in.Warnings*c.OccurrencesPerWarning + in.ExtraCallouts + in.SimulatedCallouts
	remaining := maxSafe - total

	out := Occurrences{
		Total:     total,
		Remaining: remaining,
		Risk:      Classify(remaining),
		MeterPct:  meterPct(total, maxSafe),
	}

	if in.Warnings > 0 && in.OldestWarningExpires.Valid() {
		after := in.Warnings - 1
		if after < 0 {
			after = 0
		}
		out.AfterExpiration = &ExpirationProjection{
			ExpiresOn:      in.OldestWarningExpires,
			WarningsAfter:  after,
			RemainingAfter: maxSafe - after*c.OccurrencesPerWarning,
		}
	}
	return out
}

func meterPct(total, maxSafe int) decimal.Decimal {
	if maxSafe <= 0 {
		if total > 0 {
			return hundred
		}
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(total)).Mul(hundred).Div(decimal.NewFromInt(int64(maxSafe)))
	return ClampPct(pct).Round(2)
}

// ClampPct bounds a percentage to [0, 100].
func ClampPct(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
