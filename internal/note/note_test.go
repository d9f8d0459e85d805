package note

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAgeDaysNeverNegative(t *testing.T) {
	n := Note{Created: time.Now().Add(24 * time.Hour)}
	require.Equal(t, 0.0, n.AgeDays(time.Now()))
}

func TestAgeDaysComputesElapsedDays(t *testing.T) {
	now := time.Now()
	n := Note{Created: now.Add(-48 * time.Hour)}
	require.InDelta(t, 2.0, n.AgeDays(now), 0.01)
}

func TestWarningErrorIncludesNoteWhenSet(t *testing.T) {
	w := Warning{Kind: WarnHeaderParse, Note: "broker overview", Msg: "bad yaml"}
	require.Equal(t, "header_parse: broker overview: bad yaml", w.Error())
}

func TestWarningErrorOmitsNoteWhenAbsent(t *testing.T) {
	w := Warning{Kind: WarnMissingIndex, Msg: "index empty"}
	require.Equal(t, "missing_index: index empty", w.Error())
}

func TestAllTypesCoversEveryConstant(t *testing.T) {
	require.ElementsMatch(t, AllTypes, []Type{
		TypeIdea, TypeDecision, TypeLearning, TypeInsight, TypeBlocker, TypeOpportunity,
	})
}
