/*
policy.go - Attendance occurrence policy

PURPOSE:
  Fixed parameters of the occurrence model and the pure calculator that
  turns an attendance snapshot into a counted total and remaining headroom.

OCCURRENCE MODEL:
  Every active warning stands for OccurrencesPerWarning occurrences.
  Informal call-outs and simulated call-outs count one occurrence each.

    total     = warnings*OccurrencesPerWarning + extraCallouts + simulated
    remaining = MaxSafeOccurrences - total

  With the defaults (3 per warning, 4 warnings) the threshold sits at 11:
  the 12th occurrence is the one that would produce the fourth warning.

RISK BANDS:
  remaining <= 0          beyond_threshold
  0 < remaining <= 3      near_threshold
  remaining > 3           comfortable

POST-EXPIRATION VIEW:
  When at least one warning is active and its expiration date is known,
  the calculator also reports the headroom after the oldest warning drops
  off. That view counts warnings only; extra call-outs and simulated dates
  are held at zero.

SEE ALSO:
  - attendance/state.go: the snapshot and its clamping setters
  - timeline/projector.go: plots the expiration date
*/
package policy

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

// Constants are the parameters of the occurrence model.
type Constants struct {
	OccurrencesPerWarning int `json:"occurrences_per_warning" toml:"occurrences_per_warning"`
	MaxWarnings           int `json:"max_warnings" toml:"max_warnings"`
	MaxExtraCallouts      int `json:"max_extra_callouts" toml:"max_extra_callouts"`

	// Informational horizon parameters. Not enforced by the calculator.
	WarningLifespanDays int `json:"warning_lifespan_days" toml:"warning_lifespan_days"`
	LookbackDays        int `json:"lookback_days" toml:"lookback_days"`
}

// NearThresholdBand is the remaining-occurrence count at or below which an
// employee is considered close to the threshold.
const NearThresholdBand = 3

// Default returns the standard policy: 3 occurrences per warning, termination
// at the 4th warning, informal call-outs capped at 2.
func Default() Constants {
	return Constants{
		OccurrencesPerWarning: 3,
		MaxWarnings:           4,
		MaxExtraCallouts:      2,
		WarningLifespanDays:   183, // ~6 months
		LookbackDays:          365,
	}
}

// MaxSafeOccurrences is the largest occurrence count still considered safe.
func (c Constants) MaxSafeOccurrences() int {
	return c.MaxWarnings*c.OccurrencesPerWarning - 1
}

// MaxActiveWarnings is the highest warning count a snapshot can hold.
func (c Constants) MaxActiveWarnings() int {
	return c.MaxWarnings - 1
}

// WithDefaults replaces every non-positive field with its default.
func (c Constants) WithDefaults() Constants {
	d := Default()
	if c.OccurrencesPerWarning <= 0 {
		c.OccurrencesPerWarning = d.OccurrencesPerWarning
	}
	if c.MaxWarnings <= 0 {
		c.MaxWarnings = d.MaxWarnings
	}
	if c.MaxExtraCallouts <= 0 {
		c.MaxExtraCallouts = d.MaxExtraCallouts
	}
	if c.WarningLifespanDays <= 0 {
		c.WarningLifespanDays = d.WarningLifespanDays
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	return c
}

// =============================================================================
// RISK LEVEL
// =============================================================================

type RiskLevel string

const (
	RiskBeyondThreshold RiskLevel = "beyond_threshold"
	RiskNearThreshold   RiskLevel = "near_threshold"
	RiskComfortable     RiskLevel = "comfortable"
)

// Classify maps remaining headroom to a risk band.
func Classify(remaining int) RiskLevel {
	switch {
	case remaining <= 0:
		return RiskBeyondThreshold
	case remaining <= NearThresholdBand:
		return RiskNearThreshold
	default:
		return RiskComfortable
	}
}
