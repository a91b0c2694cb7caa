package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/policynav/policynav/internal/log"
)

// watchDebounce coalesces bursts of filesystem events (editors and
// downloads write in several steps) before re-ingesting.
const watchDebounce = 500 * time.Millisecond

// Watcher auto-ingests files dropped into the data directory while the
// bot is running. Events are debounced and handed to the Ingestor's
// manifest-backed folder ingestion, so duplicate events and partial
// writes only cost a skipped pass.
type Watcher struct {
	ing     *Ingestor
	watcher *fsnotify.Watcher
	folders []string
	logger  log.Logger

	mu      sync.Mutex
	pending map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher over the given folders (created if absent).
func NewWatcher(ing *Ingestor, folders []string, logger log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0o750); err != nil {
			_ = fsw.Close()
			return nil, err
		}
		if err := fsw.Add(folder); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	return &Watcher{
		ing:     ing,
		watcher: fsw,
		folders: folders,
		logger:  logger,
		pending: make(map[string]bool),
	}, nil
}

// Start begins watching. The returned error only covers startup; runtime
// watch errors are logged.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Close stops the watcher and waits for in-flight ingestion to finish.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// loop drains events, debouncing writes per folder before ingesting.
func (w *Watcher) loop(ctx context.Context) {
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Base(event.Name) == manifestName {
				continue
			}
			w.mu.Lock()
			w.pending[filepath.Dir(event.Name)] = true
			w.mu.Unlock()
			timer.Reset(watchDebounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// flush ingests every folder with pending events.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	folders := make([]string, 0, len(w.pending))
	for folder := range w.pending {
		folders = append(folders, folder)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, folder := range folders {
		count, err := w.ing.IngestFolder(ctx, folder, "local")
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("watched folder ingestion failed", "folder", folder, "error", err)
			continue
		}
		if count > 0 {
			w.logger.Info("auto-ingested watched folder", "folder", folder, "files", count)
		}
	}
}
