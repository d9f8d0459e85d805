package graph

import (
	"testing"

	"github.com/aayoawoyemi/ori-mnemos/internal/note"
	"github.com/aayoawoyemi/ori-mnemos/internal/reader"
	"github.com/stretchr/testify/require"
)

func TestBacklinksOrphansDangling(t *testing.T) {
	notes := []note.Note{
		{Title: "a", Body: "see [[b]]"},
		{Title: "b", Body: ""},
	}
	g := Build(notes, reader.ExtractLinks)

	require.Equal(t, []string{"a"}, g.Incoming("b"))
	require.Equal(t, []string{"a"}, g.Orphans())
	require.Empty(t, g.DanglingTargets())

	// After "deleting" b (S1 scenario continuation): a's body still links
	// to [[b]], and with b gone from the note set that link's target "b"
	// is dangling.
	withoutB := []note.Note{{Title: "a", Body: "see [[b]]"}}
	g2 := Build(withoutB, reader.ExtractLinks)
	require.Equal(t, []string{"b"}, g2.DanglingTargets())
}

func TestInDegreeAndCrossProject(t *testing.T) {
	notes := []note.Note{
		{Title: "hub", Project: []string{"infra", "docs"}, Body: ""},
		{Title: "a", Body: "[[hub]]"},
		{Title: "b", Body: "[[hub]]"},
		{Title: "c", Body: "[[hub]]"},
	}
	g := Build(notes, reader.ExtractLinks)
	require.Equal(t, 3, g.InDegree("hub"))
	require.Contains(t, g.CrossProjectNotes(), "hub")
}

func TestComputeAuthorityAndBetweenness(t *testing.T) {
	notes := []note.Note{
		{Title: "a", Body: "[[b]]"},
		{Title: "b", Body: "[[c]]"},
		{Title: "c", Body: "[[a]]"},
	}
	g := Build(notes, reader.ExtractLinks)
	m := g.Compute(0.85, 2.0)

	require.Len(t, m.Authority, 3)
	var sum float64
	for _, v := range m.Authority {
		sum += v
	}
	require.InDelta(t, 1.0, sum, 0.01)
	require.Len(t, m.Betweenness, 3)
}

func TestArticulationPointIsBridge(t *testing.T) {
	// a-b-c chain plus b-d: b is a cut vertex.
	notes := []note.Note{
		{Title: "a", Body: "[[b]]"},
		{Title: "b", Body: "[[a]] [[c]] [[d]]"},
		{Title: "c", Body: "[[b]]"},
		{Title: "d", Body: "[[b]]"},
	}
	g := Build(notes, reader.ExtractLinks)
	m := g.Compute(0.85, 2.0)
	require.True(t, m.Bridges["b"])
}

func TestRoleBasedBridge(t *testing.T) {
	notes := []note.Note{
		{Title: "index", Body: ""},
		{Title: "project map", Body: ""},
		{Title: "ordinary note", Body: ""},
	}
	g := Build(notes, reader.ExtractLinks)
	m := g.Compute(0.85, 2.0)
	require.True(t, m.Bridges["index"])
	require.True(t, m.Bridges["project map"])
	require.False(t, m.Bridges["ordinary note"])
}

func TestPersonalizedWalkConcentratesOnSeed(t *testing.T) {
	notes := []note.Note{
		{Title: "a", Body: "[[b]]"},
		{Title: "b", Body: "[[c]]"},
		{Title: "c", Body: ""},
		{Title: "isolated", Body: ""},
	}
	g := Build(notes, reader.ExtractLinks)
	scores := g.PersonalizedWalk([]string{"a"}, 0.85)
	require.Greater(t, scores["a"], scores["isolated"])
}

func TestPersonalizedWalkUniformWhenNoSeeds(t *testing.T) {
	notes := []note.Note{
		{Title: "a", Body: ""},
		{Title: "b", Body: ""},
	}
	g := Build(notes, reader.ExtractLinks)
	scores := g.PersonalizedWalk(nil, 0.85)
	require.InDelta(t, scores["a"], scores["b"], 1e-9)
}

func TestMaxAuthority(t *testing.T) {
	require.Equal(t, 0.0, MaxAuthority(map[string]float64{}))
	require.Equal(t, 0.7, MaxAuthority(map[string]float64{"a": 0.3, "b": 0.7}))
}
