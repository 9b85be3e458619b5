package config

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/dispatch"
)

// ErrWatcherClosed is returned when a closed watcher is reused.
var ErrWatcherClosed = errors.New("config watcher is closed")

// Watcher reloads the subscription manifest when the file changes and
// swaps the dispatcher's persistent subscriptions: the previously applied
// codes are removed and the new manifest is applied in their place.
type Watcher struct {
	mu       sync.Mutex
	path     string
	watcher  *fsnotify.Watcher
	d        *dispatch.Dispatcher
	handlers map[string]dispatch.Handler
	applied  []string
	onReload func([]string, error)
	closed   bool
	done     chan struct{}
}

// NewWatcher applies the manifest at path and starts watching it.
// onReload, if non-nil, is called after every reload attempt with the
// freshly applied codes or the error that prevented the swap.
func NewWatcher(path string, d *dispatch.Dispatcher, handlers map[string]dispatch.Handler, onReload func([]string, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		watcher:  fsw,
		d:        d,
		handlers: handlers,
		onReload: onReload,
		done:     make(chan struct{}),
	}

	if err := w.Reload(); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save and
	// a direct watch is lost with the old inode.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Reload re-reads the manifest and swaps the applied subscriptions.
// Safe to call directly; the watch loop calls it on file changes.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	cfg, err := Load(w.path)
	if err != nil {
		return err
	}

	// Drop the previous generation before applying the new one. A spec that
	// fails mid-apply keeps its already-applied prefix; the next successful
	// reload replaces it.
	for _, code := range w.applied {
		_ = w.d.UnsubscribeByCode(code)
	}

	codes, err := Apply(w.d, cfg, w.handlers)
	w.applied = codes
	return err
}

// Codes returns the subscription codes from the last applied manifest.
func (w *Watcher) Codes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.applied))
	copy(out, w.applied)
	return out
}

// Close stops watching. Applied subscriptions stay registered.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			err := w.Reload()
			if w.onReload != nil {
				w.onReload(w.Codes(), err)
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
