package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalEngineDeterministic(t *testing.T) {
	e := NewLocalEngine(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "deploy the broker")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "deploy the broker")
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestLocalEngineSimilarTextsAreCloser(t *testing.T) {
	e := NewLocalEngine(128)
	ctx := context.Background()

	base, _ := e.Embed(ctx, "broker deploy runbook")
	near, _ := e.Embed(ctx, "broker deployment runbook")
	far, _ := e.Embed(ctx, "lighthouse keeper schedule")

	simNear := CosineSimilarity(base, near)
	simFar := CosineSimilarity(base, far)

	require.Greater(t, simNear, simFar)
}

func TestLocalEngineEmptyText(t *testing.T) {
	e := NewLocalEngine(32)
	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		require.Equal(t, float32(0), x)
	}
}

func TestCosineSimilarityMismatchedLength(t *testing.T) {
	require.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1}))
}

func TestEmbedBatch(t *testing.T) {
	e := NewLocalEngine(16)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
}
