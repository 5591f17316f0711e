// Package watch feeds a file's contents to a viewer every time the file
// changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/mcncl/jsonview/internal/logging"
)

// Sink receives raw file contents. session.Session satisfies it; its
// OnInput debounces bursts of writes into one rebuild.
type Sink interface {
	OnInput(text string)
}

// Watcher watches one file.
type Watcher struct {
	path    string
	sink    Sink
	watcher *fsnotify.Watcher
	logger  *log.Logger
}

// New starts watching path. The parent directory is watched rather than the
// file so that editors which save by renaming a temp file are still seen.
func New(path string, sink Sink, logger *log.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		sink:    sink,
		watcher: fw,
		logger:  logger.With("file", filepath.Base(abs)),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start delivers changes until ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.logger.Debug("fsnotify event", "op", event.Op.String())

			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.reload()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.logger.Warn("watched file went away")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "err", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("cannot read file", "err", err)
		return
	}
	w.logger.Debug("file changed", "bytes", len(data))
	w.sink.OnInput(string(data))
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
