package ikarm

import (
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"ikarm/kinematics"
)

// watcherEntry is one shared watcher and the number of services holding it.
type watcherEntry struct {
	watcher  *linksWatcher
	refCount int
}

// WatcherRegistry shares one links file watcher between every service configured
// with the same file. The watcher is closed when its last holder releases it.
type WatcherRegistry struct {
	mu      sync.Mutex
	entries map[string]*watcherEntry // links file path -> entry
}

// NewWatcherRegistry returns an empty registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{entries: make(map[string]*watcherEntry)}
}

var globalWatchers = NewWatcherRegistry()

// Acquire subscribes model to changes of the links file at path, starting a watcher
// for the file if none is running.
func (r *WatcherRegistry) Acquire(path string, model *kinematics.Model, logger logging.Logger) error {
	path = filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[path]; exists {
		entry.watcher.subscribe(model)
		entry.refCount++
		logger.Debugf("Sharing watcher for %s (refCount: %d)", path, entry.refCount)
		return nil
	}

	w, err := newLinksWatcher(path, logger)
	if err != nil {
		return err
	}
	w.subscribe(model)
	w.start()
	r.entries[path] = &watcherEntry{watcher: w, refCount: 1}
	logger.Infof("Watching %s for link length changes", path)
	return nil
}

// Release unsubscribes model from path, closing the watcher once nothing holds it.
func (r *WatcherRegistry) Release(path string, model *kinematics.Model) error {
	path = filepath.Clean(path)

	r.mu.Lock()
	entry, exists := r.entries[path]
	if !exists {
		r.mu.Unlock()
		return nil
	}
	entry.watcher.unsubscribe(model)
	entry.refCount--
	if entry.refCount > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, path)
	r.mu.Unlock()

	if err := entry.watcher.close(); err != nil {
		return errors.Wrapf(err, "error closing watcher for %s", path)
	}
	return nil
}

// Status returns the number of holders of the watcher for path.
func (r *WatcherRegistry) Status(path string) (refCount int, watching bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[filepath.Clean(path)]
	if !exists {
		return 0, false
	}
	return entry.refCount, true
}

// ForceClose closes the watcher for path regardless of its holders.
func (r *WatcherRegistry) ForceClose(path string) error {
	path = filepath.Clean(path)

	r.mu.Lock()
	entry, exists := r.entries[path]
	if exists {
		delete(r.entries, path)
	}
	r.mu.Unlock()

	if !exists {
		return nil
	}
	return entry.watcher.close()
}
