package glossary

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docscout/internal/logging"
)

// Watcher reloads a glossary when its file changes on disk, so dictionary
// edits take effect without restarting long-lived sessions. Events are
// debounced because editors fire several writes per save.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	glossary *Glossary

	debounceDur time.Duration
	lastReload  time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for the glossary's file. The glossary must
// have been loaded from a path.
func NewWatcher(g *Glossary) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fw,
		glossary:    g,
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine
// until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save,
	// which drops a watch registered on the file itself.
	dir := filepath.Dir(w.glossary.Path())
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	logging.Glossary("Watching %s for glossary changes", dir)

	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	target := filepath.Clean(w.glossary.Path())
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
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.mu.Lock()
			debounced := time.Since(w.lastReload) < w.debounceDur
			if !debounced {
				w.lastReload = time.Now()
			}
			w.mu.Unlock()
			if debounced {
				continue
			}

			if err := w.glossary.Reload(); err != nil {
				logging.Get(logging.CategoryGlossary).Warnf("Glossary reload failed: %v", err)
				continue
			}
			logging.Glossary("Glossary reloaded after change: %s", event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryGlossary).Warnf("Glossary watcher error: %v", err)
		}
	}
}
