package browser

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
)

// Watcher monitors the browsed directory and reports changes so the
// front end can refresh its listing. Only one directory is watched at a
// time; Watch moves the watch along with the browser's location.
type Watcher struct {
	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	watched string
	refresh chan string
	done    chan struct{}
}

// NewWatcher creates a watcher. Callers must Close it.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		refresh: make(chan string, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch switches monitoring to the given directory.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watched == dir {
		return nil
	}
	if w.watched != "" {
		// Removing a vanished directory fails; the kernel already
		// dropped the watch in that case.
		_ = w.fsw.Remove(w.watched)
		w.watched = ""
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watched = dir
	return nil
}

// Refresh returns the channel on which changed directories are
// reported.
func (w *Watcher) Refresh() <-chan string {
	return w.refresh
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	_ = w.fsw.Close()
}

// loop selects on watcher channels and dispatches refresh
// notifications.
func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			zlog.Error().Err(err).Msg("browser: watcher error")

		case <-w.done:
			return
		}
	}
}

// handleEvent filters events and signals a refresh for relevant ones.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	dir := filepath.Dir(event.Name)
	select {
	case w.refresh <- dir:
	default:
		// A refresh is already pending for this cycle.
	}
}
