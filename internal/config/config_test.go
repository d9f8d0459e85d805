package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ori.config.yaml"), []byte(`
retrieval:
  default_limit: 25
`), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Retrieval.DefaultLimit)
	require.Equal(t, Default().BM25, cfg.BM25)
	require.Equal(t, Default().Vitality, cfg.Vitality)
}

func TestLoadStructurallyInvalidFileIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ori.config.yaml"), []byte(`
engine:
  embedding_dims: "not-a-number"
`), 0644))

	_, err := Load(root)
	require.Error(t, err)
}

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	d := Default()
	require.Equal(t, 256, d.Engine.EmbeddingDims)
	require.Equal(t, 8, d.Engine.PiecewiseBins)
	require.Equal(t, 0.10, d.Retrieval.ExplorationBudget)
	require.Equal(t, 60, d.Retrieval.RRFK)
	require.Equal(t, 0.5, d.Graph.BridgeVitalityFloor)
	require.Equal(t, 14, d.Vitality.RevivalWindowDays)
	require.True(t, d.IPS.Enabled)
}
