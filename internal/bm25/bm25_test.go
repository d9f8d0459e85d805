package bm25

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("The broker is a deployed system, to go fast")
	require.NotContains(t, tokens, "the")
	require.NotContains(t, tokens, "is")
	require.NotContains(t, tokens, "a")
	require.NotContains(t, tokens, "to")
	require.Contains(t, tokens, "broker")
	require.Contains(t, tokens, "deployed")
}

func TestScoreMatchingDocRanksAboveNonMatching(t *testing.T) {
	idx := Build([]Document{
		{Title: "match", TitleText: "broker deploy runbook", Body: "steps to deploy the broker safely"},
		{Title: "unrelated", TitleText: "lighthouse schedule", Body: "keeper rotation calendar"},
	}, DefaultConfig())

	results := idx.Score("deploy broker")
	require.NotEmpty(t, results)
	require.Equal(t, "match", results[0].Title)
}

func TestTitleBoostMonotonicity(t *testing.T) {
	cfgLow := Config{K1: 1.2, B: 0.75, TitleBoost: 1.0, DescriptionBoost: 1.0}
	cfgHigh := Config{K1: 1.2, B: 0.75, TitleBoost: 5.0, DescriptionBoost: 1.0}

	docs := []Document{
		{Title: "a", TitleText: "broker deploy runbook", Body: "irrelevant text"},
		{Title: "b", TitleText: "unrelated", Body: "some other words entirely"},
	}

	lowScore := scoreOf(Build(docs, cfgLow).Score("broker"), "a")
	highScore := scoreOf(Build(docs, cfgHigh).Score("broker"), "a")

	require.GreaterOrEqual(t, highScore, lowScore)
}

func scoreOf(results []Result, title string) float64 {
	for _, r := range results {
		if r.Title == title {
			return r.Score
		}
	}
	return 0
}

func TestEmptyIndexEmptyQuery(t *testing.T) {
	idx := Build(nil, DefaultConfig())
	require.Empty(t, idx.Score("anything"))
}

func TestNoMatchingTermsReturnsEmpty(t *testing.T) {
	idx := Build([]Document{{Title: "a", TitleText: "broker deploy"}}, DefaultConfig())
	require.Empty(t, idx.Score("lighthouse keeper"))
}
