package policy_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/policy"
)

func TestDefault_MaxSafeOccurrences(t *testing.T) {
	c := policy.Default()
	assert.Equal(t, 11, c.MaxSafeOccurrences())
	assert.Equal(t, 3, c.MaxActiveWarnings())
}

func TestWithDefaults_FillsNonPositive(t *testing.T) {
	c := policy.Constants{OccurrencesPerWarning: 2, MaxWarnings: -1}.WithDefaults()

	assert.Equal(t, 2, c.OccurrencesPerWarning)
	assert.Equal(t, 4, c.MaxWarnings)
	assert.Equal(t, 2, c.MaxExtraCallouts)
	assert.Equal(t, 183, c.WarningLifespanDays)
	assert.Equal(t, 365, c.LookbackDays)
}

// =============================================================================
// TOTAL / REMAINING
// =============================================================================

func TestCompute_FormulaHoldsAcrossDomain(t *testing.T) {
	c := policy.Default()
	for w := 0; w <= 3; w++ {
		for e := 0; e <= 2; e++ {
			for s := 0; s <= 4; s++ {
				got := policy.Compute(c, policy.Input{Warnings: w, ExtraCallouts: e, SimulatedCallouts: s})
				total := w*3 + e + s
				if got.Total != total {
					t.Errorf("w=%d e=%d s=%d: total %d, want %d", w, e, s, got.Total, total)
				}
				if got.Remaining != 11-total {
					t.Errorf("w=%d e=%d s=%d: remaining %d, want %d", w, e, s, got.Remaining, 11-total)
				}
			}
		}
	}
}

func TestCompute_BaselineScenario(t *testing.T) {
	// GIVEN: 2 warnings, 1 extra call-out, no simulations
	// THEN: 7 counted, 4 remaining, comfortable
	got := policy.Compute(policy.Default(), policy.Input{Warnings: 2, ExtraCallouts: 1})

	assert.Equal(t, 7, got.Total)
	assert.Equal(t, 4, got.Remaining)
	assert.Equal(t, policy.RiskComfortable, got.Risk)
	assert.Nil(t, got.AfterExpiration, "no expiration date set")
}

func TestCompute_AtThresholdScenario(t *testing.T) {
	// GIVEN: 3 warnings, 2 extra call-outs, 1 simulated date
	// THEN: 12 counted, -1 remaining, beyond threshold
	got := policy.Compute(policy.Default(), policy.Input{Warnings: 3, ExtraCallouts: 2, SimulatedCallouts: 1})

	assert.Equal(t, 12, got.Total)
	assert.Equal(t, -1, got.Remaining)
	assert.Equal(t, policy.RiskBeyondThreshold, got.Risk)
	assert.True(t, got.MeterPct.Equal(decimal.NewFromInt(100)), "meter clamps at 100, got %s", got.MeterPct)
}

func TestClassify_Bands(t *testing.T) {
	cases := map[int]policy.RiskLevel{
		-5: policy.RiskBeyondThreshold,
		0:  policy.RiskBeyondThreshold,
		1:  policy.RiskNearThreshold,
		3:  policy.RiskNearThreshold,
		4:  policy.RiskComfortable,
		11: policy.RiskComfortable,
	}
	for remaining, want := range cases {
		assert.Equal(t, want, policy.Classify(remaining), "remaining=%d", remaining)
	}
}

// =============================================================================
// POST-EXPIRATION PROJECTION
// =============================================================================

func TestCompute_AfterExpiration_SingleWarning(t *testing.T) {
	exp := calendar.NewDate(2026, time.March, 1, time.UTC)
	got := policy.Compute(policy.Default(), policy.Input{Warnings: 1, OldestWarningExpires: exp})

	require.NotNil(t, got.AfterExpiration)
	assert.Equal(t, 0, got.AfterExpiration.WarningsAfter)
	assert.Equal(t, 11, got.AfterExpiration.RemainingAfter)
	assert.True(t, got.AfterExpiration.ExpiresOn.Equal(exp))
}

func TestCompute_AfterExpiration_IgnoresCalloutsAndSimulations(t *testing.T) {
	exp := calendar.NewDate(2026, time.March, 1, time.UTC)
	got := policy.Compute(policy.Default(), policy.Input{
		Warnings:             3,
		ExtraCallouts:        2,
		SimulatedCallouts:    4,
		OldestWarningExpires: exp,
	})

	require.NotNil(t, got.AfterExpiration)
	assert.Equal(t, 2, got.AfterExpiration.WarningsAfter)
	assert.Equal(t, 5, got.AfterExpiration.RemainingAfter)
}

func TestCompute_AfterExpiration_RequiresWarningAndValidDate(t *testing.T) {
	exp := calendar.NewDate(2026, time.March, 1, time.UTC)

	noWarnings := policy.Compute(policy.Default(), policy.Input{OldestWarningExpires: exp})
	assert.Nil(t, noWarnings.AfterExpiration)

	noDate := policy.Compute(policy.Default(), policy.Input{Warnings: 2})
	assert.Nil(t, noDate.AfterExpiration)
}

func TestCompute_MeterPct(t *testing.T) {
	got := policy.Compute(policy.Default(), policy.Input{Warnings: 1, ExtraCallouts: 1})
	// 4 / 11 * 100 = 36.3636...
	assert.Equal(t, "36.36", got.MeterPct.StringFixed(2))

	zero := policy.Compute(policy.Default(), policy.Input{})
	assert.True(t, zero.MeterPct.IsZero())
}

func TestCompute_Idempotent(t *testing.T) {
	in := policy.Input{Warnings: 2, ExtraCallouts: 2, SimulatedCallouts: 1}
	first := policy.Compute(policy.Default(), in)
	second := policy.Compute(policy.Default(), in)
	assert.Equal(t, first, second)
}
