// Package watcher observes an incoming directory tree and reports files that
// have gone quiet. Bursts of write events on one file are coalesced with a
// per-path debounce timer: every event cancels and replaces the previous
// timer, so a single "stable" notification fires one quiet period after the
// last write. Distinct files debounce independently. Notifications are
// delivered on a bounded channel consumed by the pipeline workers.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/logger"
)

// DefaultQuiet is the debounce quiet period used when none is configured.
const DefaultQuiet = time.Second

// Watcher monitors a directory tree recursively for tracked dataset files.
type Watcher struct {
	root  string
	stems map[string]struct{}
	quiet time.Duration

	fsw    *fsnotify.Watcher
	events chan string
	stopc  chan struct{}

	mu       sync.Mutex
	timers   map[string]*time.Timer
	closed   bool
	inflight sync.WaitGroup
	stopOnce sync.Once
}

// New creates a watcher over root. Only files whose lowercase base name
// (without extension) is in stems are debounced; everything else is ignored.
// buffer sizes the notification channel.
func New(root string, stems []string, quiet time.Duration, buffer int) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if buffer <= 0 {
		buffer = 64
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	filter := make(map[string]struct{}, len(stems))
	for _, s := range stems {
		filter[strings.ToLower(s)] = struct{}{}
	}

	w := &Watcher{
		root:   root,
		stems:  filter,
		quiet:  quiet,
		fsw:    fsw,
		events: make(chan string, buffer),
		stopc:  make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}

	if err := w.watchTree(root, false); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", root)
	}
	return w, nil
}

// Events returns the stable-file notification channel. It is closed once the
// watcher has fully stopped; no path is delivered after shutdown begins.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Run processes filesystem events until the context is cancelled. Blocking;
// use Start for the background mode.
func (w *Watcher) Run(ctx context.Context) error {
	logger.Infow("Watching for incoming files",
		"root", w.root, "quiet_period", w.quiet, "datasets", len(w.stems))

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("Watcher error", "error", err)
		}
	}
}

// Start runs the watcher on a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Errorw("Watcher stopped with error", "error", err)
		}
	}()
}

// Close stops the watcher: cancels every pending debounce timer, stops
// accepting filesystem events, waits for in-flight notifications to settle,
// then closes the events channel. Safe to call more than once.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		for path, timer := range w.timers {
			timer.Stop()
			delete(w.timers, path)
		}
		w.mu.Unlock()

		close(w.stopc)
		w.inflight.Wait()
		w.fsw.Close()
		close(w.events)
	})
}

// handle routes one filesystem event. Directory creation extends the watch
// tree; matching file writes start or reset a debounce countdown.
func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			// Files may land in the new directory before the watch is
			// registered; schedule anything already present.
			if err := w.watchTree(event.Name, true); err != nil {
				logger.Warnw("Cannot watch new directory", "dir", event.Name, "error", err)
			}
		}
		return
	}

	if _, tracked := w.stems[stem(event.Name)]; !tracked {
		return
	}
	w.schedule(event.Name)
}

// schedule starts or restarts the debounce countdown for one path.
// Replacing an entry cancels the previous timer before insertion, so a stale
// timer can never fire after a reset.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.quiet, func() {
		w.fire(path)
	})
}

// fire emits the stable notification for one path, unless shutdown has begun.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	select {
	case w.events <- path:
	case <-w.stopc:
	}
}

// watchTree registers dir and every subdirectory with fsnotify. When
// scheduleExisting is set, matching files already present are debounced too.
func (w *Watcher) watchTree(dir string, scheduleExisting bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		if scheduleExisting {
			if _, tracked := w.stems[stem(path)]; tracked {
				w.schedule(path)
			}
		}
		return nil
	})
}

// stem is the lowercase base name without extension.
func stem(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.ToLower(base)
}
