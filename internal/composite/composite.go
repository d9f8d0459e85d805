// Package composite computes the per-candidate weighted similarity score
// across the six composite spaces (text, temporal, vitality, importance,
// type, community).
package composite

import (
	"math"
	"sort"

	"github.com/aayoawoyemi/ori-mnemos/internal/embedding"
	"github.com/aayoawoyemi/ori-mnemos/internal/intent"
	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
	"github.com/aayoawoyemi/ori-mnemos/internal/note"
)

// PiecewiseEncode maps a scalar v in [0,1] to a length-bins vector:
// bins strictly below floor(v*bins) are 1, the bin containing v*bins
// holds the fractional part, higher bins are 0; v=1 sets every bin to 1.
// This gives a monotone, cosine-sensible encoding of a scalar signal.
func PiecewiseEncode(v float64, bins int) []float64 {
	if bins <= 0 {
		bins = 8
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	out := make([]float64, bins)
	scaled := v * float64(bins)
	full := int(math.Floor(scaled))
	if full >= bins {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	frac := scaled - float64(full)
	for i := 0; i < bins; i++ {
		switch {
		case i < full:
			out[i] = 1
		case i == full:
			out[i] = frac
		default:
			out[i] = 0
		}
	}
	return out
}

// cosine64 is CosineSimilarity for float64 vectors, used for piecewise
// encodings and type-target vectors.
func cosine64(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Candidate bundles everything the composite scorer needs about one note.
type Candidate struct {
	Note             note.Note
	TitleVec         []float32
	DescVec          []float32
	BodyVec          []float32
	TypeVec          []float32
	CommunityVec     []float32
	Vitality         float64
	PageRank         float64
	DaysSinceIndexed float64
}

// SpaceScores is the per-space breakdown kept on every result for
// debugging.
type SpaceScores struct {
	Text, Temporal, Vitality, Importance, Type, Community float64
}

// Result is one scored candidate.
type Result struct {
	Title  string
	Score  float64
	Spaces SpaceScores
}

// Params configures a scoring run.
type Params struct {
	Bins        int
	MaxPageRank float64
}

// Score runs the composite scorer over candidates for the given query
// embedding and intent, returning results sorted by descending score.
func Score(queryVec []float32, candidates []Candidate, in intent.Intent, p Params) []Result {
	timer := logging.StartTimer(logging.CategoryComposite, "Score")
	defer timer.Stop()

	spaceW := intent.SpaceWeightsFor(in)
	splitW := intent.SplitWeightsFor(in)
	typeTarget := buildTypeTarget(intent.TypeTarget(in))
	importanceTarget := 0.5
	if in == intent.Procedural || in == intent.Decision {
		importanceTarget = 0.8
	}
	encOne := PiecewiseEncode(1.0, p.Bins)

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		spaces := SpaceScores{
			Text:       textSpace(queryVec, c, splitW),
			Type:       cosine64(toFloat64(c.TypeVec), typeTarget),
			Community:  communitySpace(c.CommunityVec),
			Temporal:   cosine64(PiecewiseEncode(math.Exp(-c.DaysSinceIndexed/30), p.Bins), encOne),
			Vitality:   cosine64(PiecewiseEncode(c.Vitality, p.Bins), encOne),
			Importance: cosine64(PiecewiseEncode(normalizedPageRank(c.PageRank, p.MaxPageRank), p.Bins), PiecewiseEncode(importanceTarget, p.Bins)),
		}

		score := spaceW.Text*spaces.Text + spaceW.Temporal*spaces.Temporal +
			spaceW.Vitality*spaces.Vitality + spaceW.Importance*spaces.Importance +
			spaceW.Type*spaces.Type + spaceW.Community*spaces.Community

		results = append(results, Result{Title: c.Note.Title, Score: score, Spaces: spaces})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func normalizedPageRank(pr, max float64) float64 {
	if max <= 0 {
		return 0
	}
	v := pr / max
	if v > 1 {
		v = 1
	}
	return v
}

func textSpace(queryVec []float32, c Candidate, w intent.SplitWeights) float64 {
	return w.Title*embedding.CosineSimilarity(queryVec, c.TitleVec) +
		w.Description*embedding.CosineSimilarity(queryVec, c.DescVec) +
		w.Body*embedding.CosineSimilarity(queryVec, c.BodyVec)
}

func communitySpace(communityVec []float32) float64 {
	for _, v := range communityVec {
		if v != 0 {
			return 0.5
		}
	}
	return 0
}

// buildTypeTarget constructs a one-hot-union target vector over
// note.AllTypes for the given target type names.
func buildTypeTarget(targetTypes []string) []float64 {
	wanted := make(map[string]bool, len(targetTypes))
	for _, t := range targetTypes {
		wanted[t] = true
	}
	out := make([]float64, len(note.AllTypes))
	for i, t := range note.AllTypes {
		if wanted[string(t)] {
			out[i] = 1
		}
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
