// Package watch flags on-disk modifications to files under review.
//
// A file that changes on disk while diffs against it are pending is a
// hazard: the stored baselines no longer describe what the user sees in
// their editor. The watcher does not reconcile; it publishes
// event.TopicFileModifiedExternally and leaves the response to the caller.
package watch

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/editflow/editflow/internal/engine/document"
	"github.com/editflow/editflow/internal/event"
	"github.com/editflow/editflow/internal/logging"
)

// Watcher errors.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyTracking = errors.New("uri is already tracked")
	ErrNotTracking     = errors.New("uri is not tracked")
)

// ExternalModification is the payload for TopicFileModifiedExternally.
type ExternalModification struct {
	URI       string
	Path      string
	Timestamp time.Time
}

// Watcher publishes hazard events for tracked files modified outside the
// engine. Engine-initiated writes flushed to disk are suppressed via the
// document store's system-write marker.
type Watcher struct {
	bus      *event.Bus
	store    *document.Store
	log      *logging.Logger
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	uris    map[string]string // abs path -> uri
	timers  map[string]*time.Timer
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher publishing on bus. Events for the same path within
// the debounce interval collapse into one; a zero debounce publishes
// immediately.
func New(bus *event.Bus, store *document.Store, log *logging.Logger, debounce time.Duration) (*Watcher, error) {
	if log == nil {
		log = logging.Null
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		bus:      bus,
		store:    store,
		log:      log.WithComponent("watch"),
		debounce: debounce,
		fsw:      fsw,
		uris:     make(map[string]string),
		timers:   make(map[string]*time.Timer),
		closeCh:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Track starts watching the file behind uri.
func (w *Watcher) Track(uri string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	path, err := uriToPath(uri)
	if err != nil {
		return err
	}
	if _, ok := w.uris[path]; ok {
		return ErrAlreadyTracking
	}

	if err := w.fsw.Add(path); err != nil {
		return err
	}
	w.uris[path] = uri
	return nil
}

// Untrack stops watching the file behind uri.
func (w *Watcher) Untrack(uri string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	path, err := uriToPath(uri)
	if err != nil {
		return err
	}
	if _, ok := w.uris[path]; !ok {
		return ErrNotTracking
	}

	if err := w.fsw.Remove(path); err != nil {
		return err
	}
	delete(w.uris, path)
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	return nil
}

// TrackedURIs returns the uris currently watched.
func (w *Watcher) TrackedURIs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.uris))
	for _, uri := range w.uris {
		out = append(out, uri)
	}
	return out
}

// Close stops the watcher and cancels pending debounce timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// A flush of an engine-initiated write is not an external hazard.
	if w.store.IsSystemWrite() {
		return
	}

	path, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	uri, ok := w.uris[path]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}

	if w.debounce <= 0 {
		w.mu.Unlock()
		w.publish(uri, path)
		return
	}

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		w.mu.Unlock()
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.publish(uri, path)
	})
	w.mu.Unlock()
}

func (w *Watcher) publish(uri, path string) {
	w.log.Info("external modification on %s", uri)
	w.bus.Publish(event.TopicFileModifiedExternally, ExternalModification{
		URI:       uri,
		Path:      path,
		Timestamp: time.Now(),
	})
}

// uriToPath resolves a uri to an absolute filesystem path. Plain paths are
// accepted as-is; file scheme uris have the scheme stripped.
func uriToPath(uri string) (string, error) {
	path := strings.TrimPrefix(uri, "file://")
	return filepath.Abs(path)
}
