// Package watcher reports changes to corpus files.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

var ErrInvalidDebounce = errors.New("debounce must not be negative")

// Op is the kind of change observed.
type Op int

const (
	// Changed means the file was created, written or replaced.
	Changed Op = iota + 1
	// Removed means the file was deleted or renamed away.
	Removed
)

func (o Op) String() string {
	switch o {
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is one debounced change to a watched file.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches individual files. It watches their directories so that
// editors replacing a file through a rename are still seen.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// WithDebounce sets the quiet period before a change is reported. Zero reports every event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) error {
		if d < 0 {
			return ErrInvalidDebounce
		}
		w.debounce = d
		return nil
	}
}

// New creates a watcher.
func New(opts ...Option) (*Watcher, error) {
	w := &Watcher{
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsw = fsw
	return w, nil
}

// Watch reports changes to the file at path until ctx is done or the watcher is closed.
// The returned channel is closed when watching stops.
func (w *Watcher) Watch(ctx context.Context, path string) (<-chan Event, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := w.fsw.Add(filepath.Dir(path)); err != nil {
		return nil, err
	}

	events := make(chan Event, 1)
	go w.loop(ctx, path, events)
	return events, nil
}

func (w *Watcher) loop(ctx context.Context, path string, events chan<- Event) {
	defer close(events)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var pending *Event
	emit := func() bool {
		ev := *pending
		pending = nil
		w.logger.Debug("corpus file event", "path", ev.Path, "op", ev.Op)
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			op, ok := classify(event.Op)
			if !ok {
				continue
			}
			pending = &Event{Path: path, Op: op}
			if w.debounce == 0 {
				if !emit() {
					return
				}
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if pending != nil && !emit() {
				return
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

func classify(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return Removed, true
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		return Changed, true
	}
	return 0, false
}

// Close stops all watches.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
