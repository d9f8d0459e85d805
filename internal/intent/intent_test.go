package intent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyProcedural(t *testing.T) {
	c := Classify("how do I deploy the broker", nil)
	require.Equal(t, Procedural, c.Intent)
}

func TestClassifyDecision(t *testing.T) {
	c := Classify("why did we choose option X", nil)
	require.Equal(t, Decision, c.Intent)
}

func TestClassifyEpisodic(t *testing.T) {
	c := Classify("when did we last discuss this", nil)
	require.Equal(t, Episodic, c.Intent)
}

func TestClassifyNoMatchDefaultsSemantic(t *testing.T) {
	c := Classify("broker overview notes", nil)
	require.Equal(t, Semantic, c.Intent)
	require.Equal(t, 0.5, c.Confidence)
}

func TestClassifyConfidenceLevels(t *testing.T) {
	single := Classify("how to configure the broker", nil)
	require.Equal(t, Procedural, single.Intent)

	multi := Classify("how do I deploy and configure and setup the broker runbook", nil)
	require.Equal(t, 1.0, multi.Confidence)
}

func TestSpaceWeightsSumToOne(t *testing.T) {
	for _, i := range []Intent{Semantic, Episodic, Procedural, Decision} {
		w := SpaceWeightsFor(i)
		sum := w.Text + w.Temporal + w.Vitality + w.Importance + w.Type + w.Community
		require.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestSplitWeightsSumToOne(t *testing.T) {
	for _, i := range []Intent{Semantic, Episodic, Procedural, Decision} {
		w := SplitWeightsFor(i)
		require.InDelta(t, 1.0, w.Title+w.Description+w.Body, 1e-9)
	}
}

func TestExtractEntitiesPrefersLongerMatch(t *testing.T) {
	titles := []string{"broker", "broker deploy runbook"}
	c := Classify("how do I run the broker deploy runbook", titles)
	require.Contains(t, c.Entities, "broker deploy runbook")
	require.NotContains(t, c.Entities, "broker")
}

func TestTypeTargetDecision(t *testing.T) {
	require.Equal(t, []string{"decision"}, TypeTarget(Decision))
}
