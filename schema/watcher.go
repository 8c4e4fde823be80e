package schema

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a schema directory into a Registry whenever files in it change.
type Watcher struct {
	registry *Registry
	dir      string
	include  []string
	base     []Shape
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithBase sets shapes that are always present in addition to the directory's.
func WithBase(shapes []Shape) WatcherOption {
	return func(w *Watcher) {
		w.base = shapes
	}
}

// WithInclude restricts loading to the named subdirectories.
func WithInclude(subdirs []string) WatcherOption {
	return func(w *Watcher) {
		w.include = subdirs
	}
}

// WithDebounce sets how long the watcher waits for events to settle before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a watcher over dir. Call Reload once to populate the
// registry, then Run to follow changes.
func NewWatcher(registry *Registry, dir string, opts ...WatcherOption) (*Watcher, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if dir == "" {
		return nil, ErrDirRequired
	}
	w := &Watcher{
		registry: registry,
		dir:      dir,
		debounce: defaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "schema-watcher", "dir", dir)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// fsnotify is not recursive; add every directory individually
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipName(d.Name()) {
				return filepath.SkipDir
			}
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return nil, err
	}
	w.watcher = fw
	return w, nil
}

// Reload reads the directory and swaps the result into the registry.
// Parse failures are logged; the files that did parse are still used.
func (w *Watcher) Reload() {
	shapes, err := LoadDir(w.dir, w.include)
	if err != nil {
		w.logger.Warn("some schema files failed to load", "error", err)
	}
	all := make([]Shape, 0, len(w.base)+len(shapes))
	all = append(all, w.base...)
	all = append(all, shapes...)
	w.registry.Replace(all)
}

// Run follows file changes until ctx is cancelled. Bursts of events are
// collapsed into one reload.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handleFsEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("schema watch error", "error", err)
		case <-pending:
			pending = nil
			w.Reload()
		}
	}
}

// handleFsEvent reports whether an event should trigger a reload. New
// subdirectories are added to the watch list.
func (w *Watcher) handleFsEvent(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if skipName(name) {
		return false
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	if !isSchemaFile(event.Name) {
		return false
	}
	return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename)
}
