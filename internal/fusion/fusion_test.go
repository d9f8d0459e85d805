package fusion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func defaultWeights() SignalWeights {
	return SignalWeights{Composite: 2.0, Keyword: 1.0, Graph: 1.5}
}

func TestFuseMergesByTitleAndPreservesRaw(t *testing.T) {
	composite := []SignalResult{{Title: "a", Rank: 0, Score: 0.9}, {Title: "b", Rank: 1, Score: 0.5}}
	keyword := []SignalResult{{Title: "a", Rank: 0, Score: 5.0}}

	out := Fuse(composite, keyword, nil, defaultWeights(), 60)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Title)
	require.True(t, out[0].Raw.HasComposite)
	require.True(t, out[0].Raw.HasKeyword)
	require.False(t, out[0].Raw.HasGraph)
}

func TestFuseAgreementPreservesOrder(t *testing.T) {
	order := []SignalResult{{Title: "a", Rank: 0, Score: 1}, {Title: "b", Rank: 1, Score: 0.5}, {Title: "c", Rank: 2, Score: 0.1}}
	out := Fuse(order, order, order, defaultWeights(), 60)
	require.Equal(t, []string{"a", "b", "c"}, titlesOf(out))
}

func TestFuseZeroWeightSignalDoesNotChangeOrder(t *testing.T) {
	order := []SignalResult{{Title: "a", Rank: 0, Score: 1}, {Title: "b", Rank: 1, Score: 0.5}}
	noisy := []SignalResult{{Title: "b", Rank: 0, Score: 100}, {Title: "a", Rank: 1, Score: 0}}

	withoutNoise := Fuse(order, nil, nil, SignalWeights{Composite: 1}, 60)
	withZeroWeightNoise := Fuse(order, noisy, nil, SignalWeights{Composite: 1, Keyword: 0}, 60)

	require.Equal(t, titlesOf(withoutNoise), titlesOf(withZeroWeightNoise))
}

func titlesOf(fs []Fused) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Title
	}
	return out
}

func TestInjectExplorationBudget(t *testing.T) {
	var ranked []Fused
	var allTitles []string
	for i := 0; i < 10; i++ {
		title := string(rune('a' + i))
		ranked = append(ranked, Fused{Title: title, Score: float64(10 - i)})
		allTitles = append(allTitles, title)
	}
	for i := 0; i < 20; i++ {
		allTitles = append(allTitles, "unseen-"+string(rune('A'+i)))
	}

	out := InjectExploration(ranked, 10, 0.20, allTitles, rand.New(rand.NewSource(42)))
	require.Len(t, out, 10)

	var exploreCount int
	var exploreTitles, rankedTitles []string
	for _, f := range out {
		if f.IsExploration {
			exploreCount++
			exploreTitles = append(exploreTitles, f.Title)
			require.Equal(t, 0.0, f.Score)
		} else {
			rankedTitles = append(rankedTitles, f.Title)
		}
	}
	require.Equal(t, 2, exploreCount)
	require.Len(t, rankedTitles, 8)
	for _, et := range exploreTitles {
		require.NotContains(t, rankedTitles, et)
	}
}

func TestInjectExplorationZeroBudgetNoOp(t *testing.T) {
	ranked := []Fused{{Title: "a"}, {Title: "b"}}
	out := InjectExploration(ranked, 2, 0, []string{"a", "b", "c"}, nil)
	require.Equal(t, []string{"a", "b"}, titlesOf(out))
}

func TestInjectExplorationFallsBackWhenNoUnseen(t *testing.T) {
	ranked := []Fused{{Title: "a"}, {Title: "b"}}
	out := InjectExploration(ranked, 2, 0.5, []string{"a", "b"}, nil)
	require.Equal(t, []string{"a", "b"}, titlesOf(out))
	for _, f := range out {
		require.False(t, f.IsExploration)
	}
}
