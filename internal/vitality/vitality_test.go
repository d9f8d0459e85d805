package vitality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func defaultParams() Params {
	return Params{
		ACTRDecay:              0.5,
		MetabolicRates:         MetabolicRates{Self: 0.1, Notes: 1.0, Ops: 3.0},
		AccessSaturationK:      10,
		StructuralBoostPerLink: 0.1,
		StructuralBoostCap:     10,
		RevivalDecayRate:       0.2,
		RevivalWindowDays:      14,
		BridgeVitalityFloor:    0.5,
	}
}

func TestScoreWithinBounds(t *testing.T) {
	p := defaultParams()
	for _, in := range []Input{
		{AccessCount: 0, AgeDays: 0},
		{AccessCount: 100, AgeDays: 1000, InDegree: 50},
		{AccessCount: 1, AgeDays: 1},
	} {
		v := Score(in, p)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestColdStartAccessCountZero(t *testing.T) {
	p := defaultParams()
	v := Score(Input{AccessCount: 0, AgeDays: 90}, p)
	// base activation 0.5, boost 1x, saturation at n=0 multiplies by 0.5
	require.InDelta(t, 0.25, v, 1e-6)
}

func TestHighAccessExceedsLowAccess(t *testing.T) {
	p := defaultParams()
	low := Score(Input{AccessCount: 0, AgeDays: 90}, p)
	high := Score(Input{AccessCount: 20, AgeDays: 90, InDegree: 3}, p)
	require.Greater(t, high, low)
}

func TestBridgeFloor(t *testing.T) {
	p := defaultParams()
	v := Score(Input{AccessCount: 0, AgeDays: 9999, IsBridge: true}, p)
	require.GreaterOrEqual(t, v, p.BridgeVitalityFloor)
}

func TestRevivalBonusIncreasesScore(t *testing.T) {
	p := defaultParams()
	base := Score(Input{AccessCount: 5, AgeDays: 90}, p)
	revived := Score(Input{AccessCount: 5, AgeDays: 90, HasRecentConnection: true, DaysSinceNewConnection: 1}, p)
	require.Greater(t, revived, base)
}

func TestRevivalOutsideWindowNoBonus(t *testing.T) {
	p := defaultParams()
	within := Score(Input{AccessCount: 5, AgeDays: 90, HasRecentConnection: true, DaysSinceNewConnection: 10}, p)
	outside := Score(Input{AccessCount: 5, AgeDays: 90, HasRecentConnection: true, DaysSinceNewConnection: 20}, p)
	require.Greater(t, within, outside)
}

func TestIsolatedNeverExceedsConnected(t *testing.T) {
	p := defaultParams()
	isolated := Score(Input{AccessCount: 10, AgeDays: 30, InDegree: 0}, p)
	connected := Score(Input{AccessCount: 10, AgeDays: 30, InDegree: 5}, p)
	require.LessOrEqual(t, isolated, connected)
}

func TestMetabolicRateAffectsDecay(t *testing.T) {
	p := defaultParams()
	self := Score(Input{AccessCount: 1, AgeDays: 365, Role: RoleSelf}, p)
	ops := Score(Input{AccessCount: 1, AgeDays: 365, Role: RoleOps}, p)
	require.NotEqual(t, self, ops)
}
