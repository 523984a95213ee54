package sanitize

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces rapid write events from editors that save in
// multiple syscalls.
const reloadDebounce = 200 * time.Millisecond

// Reloader serves the current Validator and swaps it when the backing
// YAML file changes. Readers never block on a reload.
type Reloader struct {
	path    string
	current atomic.Pointer[Validator]
	onSwap  func(Lists) // optional, called after a successful swap
}

// NewReloader loads the lists at path (falling back to defaults when the
// file is absent) and returns a Reloader serving them.
func NewReloader(path string, onSwap func(Lists)) (*Reloader, error) {
	lists, err := LoadLists(path)
	if err != nil {
		return nil, err
	}
	r := &Reloader{path: path, onSwap: onSwap}
	r.current.Store(New(lists))
	return r, nil
}

// Validator returns the current validator.
func (r *Reloader) Validator() *Validator {
	return r.current.Load()
}

// Watch blocks until ctx is cancelled, swapping the validator whenever the
// config file is written. A file that fails to parse leaves the previous
// validator in place.
func (r *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files via rename, which drops
	// a watch on the file itself.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return err
	}

	var timer *time.Timer
	reload := func() {
		lists, err := LoadLists(r.path)
		if err != nil {
			return
		}
		r.current.Store(New(lists))
		if r.onSwap != nil {
			r.onSwap(lists)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != filepath.Base(r.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
