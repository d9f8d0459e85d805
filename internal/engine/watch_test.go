package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersRebuildOnChange(t *testing.T) {
	root := newTestVault(t)
	writeNote(t, root, "a", "---\ntype: idea\ncreated: 2026-01-01\n---\nfirst body")

	e, err := Open(root)
	require.NoError(t, err)
	defer e.Close()

	w, err := e.NewWatcher()
	if err != nil {
		t.Skipf("fsnotify unavailable in this environment: %v", err)
	}
	defer w.Stop()

	results := make(chan IndexBuildResult, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx, func(r IndexBuildResult, errs []error) {
		select {
		case results <- r:
		default:
		}
	})

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "b.md"), []byte("---\ntype: idea\ncreated: 2026-01-01\n---\nsecond body"), 0644))

	select {
	case r := <-results:
		require.GreaterOrEqual(t, r.Stats.Total, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher-triggered rebuild")
	}
}
