// Package fusion combines the three candidate signals (composite,
// keyword, graph) by score-weighted reciprocal rank fusion and injects
// exploration. Logging the served result to the propensity ledger is
// done by the caller (internal/engine), not here.
package fusion

import (
	"math/rand"
	"sort"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// Signal names the three candidate-producing subsystems fused here.
type Signal string

const (
	SignalComposite Signal = "composite"
	SignalKeyword   Signal = "keyword"
	SignalGraph     Signal = "graph"
)

// SignalResult is one signal's ranked output: title, zero-based rank, and
// the signal's own raw score for that title.
type SignalResult struct {
	Title string
	Rank  int
	Score float64
}

// SignalWeights holds the per-signal weights used by the RRF formula.
type SignalWeights struct {
	Composite, Keyword, Graph float64
}

func (w SignalWeights) forSignal(s Signal) float64 {
	switch s {
	case SignalComposite:
		return w.Composite
	case SignalKeyword:
		return w.Keyword
	case SignalGraph:
		return w.Graph
	default:
		return 0
	}
}

// RawScores preserves each signal's contribution to a fused result, for
// debugging.
type RawScores struct {
	Composite, Keyword, Graph float64
	HasComposite, HasKeyword, HasGraph bool
}

// Fused is one fused-and-ranked output entry.
type Fused struct {
	Title         string
	Score         float64
	Raw           RawScores
	IsExploration bool
}

// Fuse runs score-weighted RRF over the three signal result lists,
// merging by title. k defaults to 60 if <= 0. Ties are broken by
// first-seen order across signals in the fixed order composite,
// keyword, graph.
func Fuse(composite, keyword, graphSignal []SignalResult, weights SignalWeights, k float64) []Fused {
	timer := logging.StartTimer(logging.CategoryFusion, "Fuse")
	defer timer.Stop()

	if k <= 0 {
		k = 60
	}

	scores := make(map[string]float64)
	raw := make(map[string]RawScores)
	order := make(map[string]int)
	var titles []string

	apply := func(sig Signal, results []SignalResult) {
		w := weights.forSignal(sig)
		for _, r := range results {
			if _, seen := order[r.Title]; !seen {
				order[r.Title] = len(titles)
				titles = append(titles, r.Title)
			}
			scores[r.Title] += w * r.Score / (k + float64(r.Rank) + 1)

			rs := raw[r.Title]
			switch sig {
			case SignalComposite:
				rs.Composite, rs.HasComposite = r.Score, true
			case SignalKeyword:
				rs.Keyword, rs.HasKeyword = r.Score, true
			case SignalGraph:
				rs.Graph, rs.HasGraph = r.Score, true
			}
			raw[r.Title] = rs
		}
	}

	apply(SignalComposite, composite)
	apply(SignalKeyword, keyword)
	apply(SignalGraph, graphSignal)

	out := make([]Fused, len(titles))
	for i, title := range titles {
		out[i] = Fused{Title: title, Score: scores[title], Raw: raw[title]}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return order[out[i].Title] < order[out[j].Title]
	})
	return out
}

// InjectExploration replaces the bottom floor(limit*budget) positions of
// a trimmed-to-limit fused list with uniformly random titles drawn from
// allTitles that are not already present, Fisher-Yates shuffled. When
// budget > 0 at least one slot is always replaced. If fewer unseen titles
// exist than the budget calls for, the shortfall is filled by keeping the
// original tail entries rather than duplicating picks.
func InjectExploration(ranked []Fused, limit int, budget float64, allTitles []string, rng *rand.Rand) []Fused {
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	trimmed := make([]Fused, limit)
	copy(trimmed, ranked[:limit])

	if budget <= 0 || limit == 0 {
		return trimmed
	}

	slots := int(float64(limit) * budget)
	if slots < 1 {
		slots = 1
	}
	if slots > limit {
		slots = limit
	}

	present := make(map[string]bool, limit)
	for _, f := range trimmed {
		present[f.Title] = true
	}

	var unseen []string
	for _, t := range allTitles {
		if !present[t] {
			unseen = append(unseen, t)
		}
	}
	shuffle(unseen, rng)

	start := limit - slots
	for i := 0; i < slots && i < len(unseen); i++ {
		trimmed[start+i] = Fused{Title: unseen[i], Score: 0, IsExploration: true}
	}
	// If unseen ran out before filling every slot, the remaining
	// positions keep their original (non-exploration) entries untouched.
	return trimmed
}

func shuffle(s []string, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
