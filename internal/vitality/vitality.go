// Package vitality scores each note's current salience in [0,1] from its
// access history, age, structural connectivity, and role.
package vitality

import "math"

// Role selects the metabolic decay rate applied to a note. The core has
// no notion of "identity" vs "operational" files
// beyond what the caller classifies; Role is how that classification
// reaches the vitality pipeline.
type Role int

const (
	RoleNotes Role = iota
	RoleSelf
	RoleOps
)

// MetabolicRates holds the per-role decay multipliers from config.
type MetabolicRates struct {
	Self  float64
	Notes float64
	Ops   float64
}

func (r MetabolicRates) forRole(role Role) float64 {
	switch role {
	case RoleSelf:
		return r.Self
	case RoleOps:
		return r.Ops
	default:
		return r.Notes
	}
}

// Params bundles the tunables exposed through vitality configuration.
type Params struct {
	ACTRDecay              float64
	MetabolicRates         MetabolicRates
	AccessSaturationK      float64
	StructuralBoostPerLink float64
	StructuralBoostCap     float64
	RevivalDecayRate       float64
	RevivalWindowDays      int
	BridgeVitalityFloor    float64
}

// Input is the per-note data the vitality pipeline needs.
type Input struct {
	AccessCount int
	AgeDays     float64
	Role        Role
	InDegree    int
	IsBridge    bool
	// HasRecentConnection and DaysSinceNewConnection describe the note's
	// most recent new incoming link. HasRecentConnection must be set
	// explicitly; the zero value of DaysSinceNewConnection alone must not
	// be mistaken for "a connection arrived today".
	HasRecentConnection    bool
	DaysSinceNewConnection float64
}

// Score runs the ordered pipeline: base activation, metabolic decay,
// structural boost, access saturation, revival bonus, bridge floor,
// final clamp. Each step operates on the running value from the
// previous step, in that fixed order.
func Score(in Input, p Params) float64 {
	d := p.ACTRDecay * p.MetabolicRates.forRole(in.Role)
	if d < 0.01 {
		d = 0.01
	}
	if d > 0.99 {
		d = 0.99
	}

	v := baseActivation(in.AccessCount, in.AgeDays, d)

	boost := 1 + p.StructuralBoostPerLink*math.Min(float64(in.InDegree), p.StructuralBoostCap)
	if boost > 2 {
		boost = 2
	}
	v *= boost

	k := p.AccessSaturationK
	if k <= 0 {
		k = 10
	}
	v *= 0.5 + 0.5*(1-math.Exp(-float64(in.AccessCount)/k))

	if in.HasRecentConnection && in.DaysSinceNewConnection >= 0 && in.DaysSinceNewConnection <= float64(p.RevivalWindowDays) {
		v += 0.2 * math.Exp(-p.RevivalDecayRate*in.DaysSinceNewConnection)
	}

	if in.IsBridge && v < p.BridgeVitalityFloor {
		v = p.BridgeVitalityFloor
	}

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// baseActivation implements the ACT-R-inspired base-level learning
// equation: B = ln(n/(1-d)) - d*ln(L), sigmoid-normalized to [0,1], with
// the documented cold-start (n=0) and fresh-note (L=0) edge cases.
func baseActivation(n int, ageDays float64, d float64) float64 {
	if n == 0 {
		return 0.5
	}
	if ageDays == 0 {
		return 1.0
	}
	b := math.Log(float64(n)/(1-d)) - d*math.Log(ageDays)
	return 1 / (1 + math.Exp(-b))
}
