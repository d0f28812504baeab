package xray

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DocumentWatcher reports external changes to the config document, such
// as an operator editing it by hand or the daemon's own tooling
// rewriting it. The watch is on the containing directory so atomic
// rename writes are observed too.
type DocumentWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan struct{}
	stop    chan struct{}
	logger  *slog.Logger
}

func NewDocumentWatcher(path string, logger *slog.Logger) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create document watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}

	w := &DocumentWatcher{
		path:    path,
		watcher: watcher,
		events:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

// Events delivers a coalesced signal per burst of document changes.
func (w *DocumentWatcher) Events() <-chan struct{} {
	return w.events
}

func (w *DocumentWatcher) Close() error {
	close(w.stop)
	return w.watcher.Close()
}

func (w *DocumentWatcher) run() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("document watcher error", "error", err)
		}
	}
}
