package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverFindsMarkerAtRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, markerName), nil, 0644))

	v, err := Discover(root)
	require.NoError(t, err)
	require.Equal(t, root, v.Root)
}

func TestDiscoverWalksUpFromSubdirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, markerName), nil, 0644))
	sub := filepath.Join(root, "notes", "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))

	v, err := Discover(sub)
	require.NoError(t, err)
	require.Equal(t, root, v.Root)
}

func TestDiscoverMissingMarkerErrors(t *testing.T) {
	root := t.TempDir()
	_, err := Discover(root)
	require.Error(t, err)
}

func TestDefaultPaths(t *testing.T) {
	v := New("/tmp/myvault")
	require.Equal(t, "/tmp/myvault/ori.config.yaml", v.ConfigPath())
	require.Equal(t, "/tmp/myvault/.ori/embeddings.db", v.DefaultEmbeddingDBPath())
	require.Equal(t, "/tmp/myvault/ops/access.jsonl", v.DefaultAccessLogPath())
}
