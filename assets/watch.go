package assets

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Change is one debounced notification for an image file in a watched
// override directory.
type Change struct {
	Path    string
	Removed bool
}

// Watcher reports changes to asset override directories so replacement art
// is picked up without a restart. Before a change is delivered the bound
// library's decoded-image cache is dropped, so the next Overlay/Guide/Mask
// lookup re-reads the file. Events are debounced per file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	lib      *Library
	debounce time.Duration
	Events   chan Change
	Errors   chan error
	closeCh  chan struct{}
	once     sync.Once
}

// NewWatcher watches dirs for image changes on behalf of lib (which may be
// nil when only the notifications are wanted). debounce <= 0 selects the
// default window.
func NewWatcher(lib *Library, debounce time.Duration, dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}
	watcher := &Watcher{
		watcher:  w,
		lib:      lib,
		debounce: debounce,
		Events:   make(chan Change, 16),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher. The run loop owns the outgoing channels and
// closes them on exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < w.debounce {
				continue
			}
			last[event.Name] = now
			if w.lib != nil {
				w.lib.Invalidate()
			}
			change := Change{Path: event.Name, Removed: event.Op&fsnotify.Remove != 0}
			select {
			case w.Events <- change:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".png" || ext == ".jpg" || ext == ".jpeg"
}
