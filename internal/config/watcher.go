package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"meebo/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file for changes and applies live-reloadable
// settings (currently the logging level). It debounces editor save storms.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	lastApplied time.Time
	debounceDur time.Duration
	running     bool
	doneCh      chan struct{}
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        path,
		debounceDur: 500 * time.Millisecond,
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory rather than the file itself: editors replace
	// files on save, which drops a direct file watch.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.watcher.Close()
		return err
	}

	go w.run(ctx)
	logging.Config("Watching %s for live config changes", w.path)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			if time.Since(w.lastApplied) < w.debounceDur {
				w.mu.Unlock()
				continue
			}
			w.lastApplied = time.Now()
			w.mu.Unlock()
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.ConfigWarn("Config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.ConfigWarn("Config reload failed, keeping previous settings: %v", err)
		return
	}
	logging.SetLevel(cfg.Logging.Level)
	logging.Config("Config reloaded: log level now %q", cfg.Logging.Level)
}

// Done returns a channel closed when the watcher goroutine exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}
