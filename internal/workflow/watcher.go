package workflow

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher serves the active rule set and hot-reloads it when the
// backing YAML file changes. An invalid edit keeps the previous set
// and logs a warning, so a bad save never takes sequencing down.
type Watcher struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	current *RuleSet

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads the rule file and starts watching it. When path is
// empty the built-in rules are served and nothing is watched.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		path:    path,
		logger:  logger,
		current: DefaultRules(),
		done:    make(chan struct{}),
	}
	if path == "" {
		return w, nil
	}

	rs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	w.current = rs

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without hot reload.
		logger.Warn("rules watcher unavailable, hot reload disabled", zap.Error(err))
		return w, nil
	}

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		logger.Warn("rules watcher unavailable, hot reload disabled", zap.Error(err))
		return w, nil
	}
	w.watcher = fw

	go w.watch()

	return w, nil
}

// Rules returns the active rule set.
func (w *Watcher) Rules() *RuleSet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
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
			w.reload()
		case <-w.watcher.Errors:
			// Keep watching.
		}
	}
}

func (w *Watcher) reload() {
	rs, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("rules reload failed, keeping previous rules",
			zap.String("path", w.path),
			zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = rs
	w.mu.Unlock()

	w.logger.Info("rules reloaded",
		zap.String("path", w.path),
		zap.Int("rules", len(rs.rules)))
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}
