package monitor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultIgnoreDirs are directory names never watched.
var DefaultIgnoreDirs = []string{
	".git", "node_modules", "vendor", "dist", "build", ".next", "coverage",
	".cache", "__pycache__", ".venv", "target", ".idea", ".vscode",
}

// ChangeSink receives raw change notifications. *Pipeline implements it.
type ChangeSink interface {
	Notify(kind models.ChangeKind, path string)
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Root string
	// IgnoreDirs are added to DefaultIgnoreDirs.
	IgnoreDirs []string
	// InitialScan reports every existing file as added on Start.
	InitialScan bool
}

// Watcher feeds filesystem changes under a directory tree into a ChangeSink.
type Watcher struct {
	logger      zerolog.Logger
	sink        ChangeSink
	root        string
	ignore      map[string]bool
	initialScan bool

	fsw      *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a Watcher rooted at opts.Root.
func NewWatcher(logger zerolog.Logger, sink ChangeSink, opts WatcherOptions) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, common.WrapErrorf(err, "resolve watch root %s", opts.Root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, common.WrapErrorf(err, "watch root %s", root)
	}
	if !info.IsDir() {
		return nil, common.NewValidationError("watch_dir", root, "is not a directory")
	}

	ignore := make(map[string]bool)
	for _, name := range DefaultIgnoreDirs {
		ignore[name] = true
	}
	for _, name := range opts.IgnoreDirs {
		if name = strings.TrimSpace(name); name != "" {
			ignore[name] = true
		}
	}

	return &Watcher{
		logger:      logger.With().Str("component", "Watcher").Logger(),
		sink:        sink,
		root:        root,
		ignore:      ignore,
		initialScan: opts.InitialScan,
		done:        make(chan struct{}),
	}, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Start adds watches for the whole tree and begins forwarding events.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return common.WrapError(err, "create fsnotify watcher")
	}
	w.fsw = fsw

	if err := w.addTree(w.root, w.initialScan); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info().Str("root", w.root).Bool("initial_scan", w.initialScan).Msg("Watching directory tree")
	return nil
}

// Stop ends event forwarding and releases the OS watches.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		if w.fsw != nil {
			err = w.fsw.Close()
		}
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Filesystem watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name
	if w.ignored(path) || common.IsAtomicTempFile(path) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			// Files may already exist by the time the watch is in place.
			if err := w.addTree(path, true); err != nil {
				w.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch new directory")
			}
			return
		}
		w.sink.Notify(models.ChangeAdded, path)
	case event.Op.Has(fsnotify.Write):
		w.sink.Notify(models.ChangeChanged, path)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.sink.Notify(models.ChangeRemoved, path)
	}
}

// addTree watches dir and every non-ignored directory beneath it. With sweep
// set, each regular file found is reported as added.
func (w *Watcher) addTree(dir string, sweep bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			w.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != w.root && w.ignore[d.Name()] {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return common.WrapErrorf(err, "watch %s", path)
			}
			return nil
		}

		if sweep && d.Type().IsRegular() && !common.IsAtomicTempFile(path) {
			w.sink.Notify(models.ChangeAdded, path)
		}
		return nil
	})
}

// ignored reports whether any directory between the root and path is ignored.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts[:len(parts)-1] {
		if w.ignore[part] {
			return true
		}
	}
	// A newly created ignored directory itself.
	return w.ignore[parts[len(parts)-1]] && isDir(path)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
