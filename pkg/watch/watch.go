// Package watch re-reads a snippet file whenever it changes.
//
// The parent directory is watched rather than the file itself, so editors
// that save by writing a temporary file and renaming it over the original
// are followed. Bursts of events are coalesced: a change is reported once
// the file has been quiet for the debounce window.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultQuietPeriod is the debounce window used when none is configured.
const DefaultQuietPeriod = 150 * time.Millisecond

// Event is one settled version of the watched file.
type Event struct {
	Path string
	Code string
	Time time.Time

	// Err is set when the file could not be read. Code is empty then.
	Err error
}

// Watcher watches a single file.
type Watcher struct {
	path   string
	quiet  time.Duration
	logger *log.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuietPeriod sets the debounce window.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.quiet = d
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for path. The file must exist.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	w := &Watcher{
		path:   abs,
		quiet:  DefaultQuietPeriod,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string { return w.path }

// Run calls fn once with the current content and again after every settled
// change. Saves that leave the content unchanged are skipped. Run blocks until
// ctx is cancelled, returning nil, or the watcher fails.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context, Event)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Debug("watching", "path", w.path, "quiet", w.quiet)

	var last [sha256.Size]byte
	emit := func() {
		ev := w.read()
		if ev.Err == nil {
			sum := sha256.Sum256([]byte(ev.Code))
			if sum == last {
				w.logger.Debug("content unchanged", "path", w.path)
				return
			}
			last = sum
		}
		fn(ctx, ev)
	}
	emit()

	timer := time.NewTimer(w.quiet)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("file event", "op", ev.Op.String())
			timer.Reset(w.quiet)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch events dropped", "error", err)
				timer.Reset(w.quiet)
				continue
			}
			return fmt.Errorf("watch: %w", err)

		case <-timer.C:
			if _, err := os.Stat(w.path); errors.Is(err, os.ErrNotExist) {
				// Removed, possibly mid-rename. Wait for it to reappear.
				continue
			}
			emit()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) read() Event {
	ev := Event{Path: w.path, Time: time.Now()}
	data, err := os.ReadFile(w.path)
	if err != nil {
		ev.Err = err
		return ev
	}
	ev.Code = string(data)
	return ev
}
