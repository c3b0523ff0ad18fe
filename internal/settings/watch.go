package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AdbAutoPlayer/shell/internal/models"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reloads a Store when its App.toml is edited outside the shell.
// Without a Watcher the store only reflects this process's own writes.
type Watcher struct {
	store     *Store
	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	stopOnce  sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

// Watch starts watching the directory containing the store's App.toml.
func Watch(store *Store) (*Watcher, error) {
	dir := filepath.Dir(store.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace files via rename, which drops
	// watches placed on the file itself.
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		store:     store,
		fsWatcher: fsWatcher,
		done:      make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.store.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}
	before := w.store.Get()
	if after := w.store.Load(); reflect.DeepEqual(before, after) {
		return
	}
	w.store.log.Info("reloaded settings after external edit", "path", w.store.Path())
	w.store.emitLog(models.NewLogMessage(models.LogLevelInfo, "App Settings reloaded: "+w.store.Path()))
}
