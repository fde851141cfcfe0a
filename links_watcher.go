package ikarm

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"

	"ikarm/kinematics"
)

// linksWatcher reloads a links file into every subscribed model whenever the file
// changes. The parent directory is watched so that editors which replace the file
// are seen.
type linksWatcher struct {
	path    string
	logger  logging.Logger
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	models map[*kinematics.Model]struct{}

	reloaded func(kinematics.LinkLengths) // optional, called after each applied reload
	wg       sync.WaitGroup
}

func newLinksWatcher(path string, logger logging.Logger) (*linksWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create links file watcher")
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(path))
	}
	return &linksWatcher{
		path:    filepath.Clean(path),
		logger:  logger,
		watcher: watcher,
		models:  make(map[*kinematics.Model]struct{}),
	}, nil
}

func (w *linksWatcher) subscribe(model *kinematics.Model) {
	w.mu.Lock()
	w.models[model] = struct{}{}
	w.mu.Unlock()
}

// unsubscribe removes model and reports how many models remain.
func (w *linksWatcher) unsubscribe(model *kinematics.Model) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.models, model)
	return len(w.models)
}

func (w *linksWatcher) start() {
	w.wg.Add(1)
	utils.PanicCapturingGo(func() {
		defer w.wg.Done()
		w.run()
	})
}

func (w *linksWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("links file watcher error: %v", err)
		}
	}
}

// reload applies the file's lengths. Files that fail to parse or validate are
// ignored and the models keep their previous lengths.
func (w *linksWatcher) reload() {
	links, err := LoadLinkLengthsFromFile(w.path)
	if err != nil {
		w.logger.Warnf("Ignoring links file change: %v", err)
		return
	}

	w.mu.Lock()
	changed := 0
	for model := range w.models {
		if model.LinkLengths() == links {
			continue
		}
		if err := model.SetLinkLengths(links); err != nil {
			w.logger.Warnf("Ignoring links file change: %v", err)
			continue
		}
		changed++
	}
	w.mu.Unlock()

	if changed == 0 {
		return
	}
	w.logger.Infof("Reloaded link lengths from %s: %v", w.path, links)
	if w.reloaded != nil {
		w.reloaded(links)
	}
}

func (w *linksWatcher) close() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
