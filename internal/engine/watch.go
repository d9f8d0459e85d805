package engine

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// Watcher triggers an incremental index build whenever the notes
// directory changes, so a long-running caller does not need to poll
// with a full directory walk. Falls back to the caller driving
// IndexBuild on its own schedule when the watch cannot be established.
type Watcher struct {
	engine      *Engine
	watcher     *fsnotify.Watcher
	debounce    time.Duration
	mu          sync.Mutex
	pending     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewWatcher establishes an fsnotify watch on the vault's notes
// directory. Returns an error if the underlying watch cannot be set up;
// callers should treat that as non-fatal and fall back to manual
// IndexBuild calls.
func (e *Engine) NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.vault.NotesDir, 0755); err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(e.vault.NotesDir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		engine:   e,
		watcher:  fw,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Run watches for .md changes under the notes directory and triggers a
// debounced, non-forced IndexBuild on each settled batch, invoking
// onRebuild with the result. Run blocks until ctx is cancelled or Stop
// is called.
func (w *Watcher) Run(ctx context.Context, onRebuild func(IndexBuildResult, []error)) {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			w.mu.Lock()
			w.pending = true
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryEngine).Warn("watcher error: %v", err)
		case <-ticker.C:
			w.mu.Lock()
			fire := w.pending
			w.pending = false
			w.mu.Unlock()
			if !fire {
				continue
			}
			result, warnings, err := w.engine.IndexBuild(ctx, false, nil)
			if onRebuild != nil {
				var errs []error
				if err != nil {
					errs = append(errs, err)
				}
				for _, wn := range warnings {
					errs = append(errs, wn)
				}
				onRebuild(result, errs)
			}
		}
	}
}

// Stop halts the watcher and releases its filesystem handle.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}
