package recording

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher invalidates cached recordings when their files change on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string

	mu      sync.RWMutex
	loaders []*Loader
}

// NewWatcher watches dir, creating it if it does not exist yet.
func NewWatcher(dir string, loaders ...*Loader) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recordings dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return &Watcher{
		watcher: watcher,
		dir:     dir,
		loaders: loaders,
	}, nil
}

// Track adds a loader whose cache follows the watched directory.
func (w *Watcher) Track(l *Loader) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaders = append(w.loaders, l)
}

// Start processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.handle(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			if err != nil {
				logger.With(zap.Error(err)).Warn("Recording watcher error")
			}
		}
	}
}

func (w *Watcher) handle(path string) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".csv") {
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, l := range w.loaders {
		suffix := "_" + l.ActuatorID() + ".csv"
		if name, ok := strings.CutSuffix(base, suffix); ok && name != "" {
			l.Invalidate(name)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
