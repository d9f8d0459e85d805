package propensity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMirrorRecordAndComputePropensities(t *testing.T) {
	m, err := OpenMirror(filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Record(Event{ID: "1", Timestamp: "t1", Query: "deploy broker", Intent: "procedural",
		Entries: []Entry{{Title: "popular", Rank: 0, Score: 1.0}}}))
	require.NoError(t, m.Record(Event{ID: "2", Timestamp: "t2", Query: "deploy broker again", Intent: "procedural",
		Entries: []Entry{{Title: "popular", Rank: 0, Score: 1.0}}}))
	require.NoError(t, m.Record(Event{ID: "3", Timestamp: "t3", Query: "other", Intent: "lookup",
		Entries: []Entry{{Title: "rare", Rank: 0, Score: 1.0}}}))

	p, err := m.ComputePropensities(0.01)
	require.NoError(t, err)
	require.InDelta(t, 2.0/3.0, p["popular"], 1e-9)
	require.InDelta(t, 1.0/3.0, p["rare"], 1e-9)
}

func TestMirrorRecordReplacesOnSameEventID(t *testing.T) {
	m, err := OpenMirror(filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Record(Event{ID: "1", Timestamp: "t1", Query: "q", Intent: "procedural",
		Entries: []Entry{{Title: "a", Rank: 0, Score: 1.0}}}))
	require.NoError(t, m.Record(Event{ID: "1", Timestamp: "t1", Query: "q", Intent: "procedural",
		Entries: []Entry{{Title: "b", Rank: 0, Score: 1.0}}}))

	p, err := m.ComputePropensities(0.01)
	require.NoError(t, err)
	require.NotContains(t, p, "a")
	require.Equal(t, 1.0, p["b"])
}

func TestMirrorComputePropensitiesEmpty(t *testing.T) {
	m, err := OpenMirror(filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	defer m.Close()

	p, err := m.ComputePropensities(0.01)
	require.NoError(t, err)
	require.Empty(t, p)
}

func TestLogWithMirrorKeepsJSONLAsSourceOfTruth(t *testing.T) {
	dir := t.TempDir()
	log := Open(filepath.Join(dir, "access.jsonl"))
	mirror, err := OpenMirror(filepath.Join(dir, "access.db"))
	require.NoError(t, err)
	log = log.WithMirror(mirror)
	defer log.Close()

	require.NoError(t, log.Append(Event{ID: "1", Timestamp: "t1", Query: "q", Intent: "procedural",
		Entries: []Entry{{Title: "a", Rank: 0, Score: 1.0}}}))
	require.NoError(t, log.Append(Event{ID: "2", Timestamp: "t2", Query: "q2", Intent: "procedural",
		Entries: []Entry{{Title: "a", Rank: 0, Score: 1.0}}}))

	events, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)

	p, err := log.Propensities(0.01)
	require.NoError(t, err)
	require.Equal(t, 1.0, p["a"])
}

func TestLogPropensitiesFallsBackWithoutMirror(t *testing.T) {
	log := Open(filepath.Join(t.TempDir(), "access.jsonl"))
	require.NoError(t, log.Append(Event{ID: "1", Timestamp: "t1", Query: "q", Intent: "procedural",
		Entries: []Entry{{Title: "a", Rank: 0, Score: 1.0}}}))

	p, err := log.Propensities(0.01)
	require.NoError(t, err)
	require.Equal(t, 1.0, p["a"])
}
