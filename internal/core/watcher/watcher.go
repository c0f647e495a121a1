package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"ccg/internal/shared/observability"
)

// Watcher marks a repository stale when relevant source files change.
// Events are debounced so an editor save burst triggers one callback
// with the accumulated path set.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  map[string]bool
	excludeFiles []glob.Glob
	relevant     func(path string) bool
	onChange     func([]string)

	pending   map[string]bool
	pendingMu sync.Mutex
	timer     *time.Timer
	done      chan struct{}
	closeOnce sync.Once
}

// New compiles the exclude patterns and prepares the watcher. relevant
// decides whether a path matters at all (typically: is it a supported
// source file); onChange receives the debounced changed paths.
func New(debounce time.Duration, excludeDirs, excludeFiles []string, relevant func(string) bool, onChange func([]string)) (*Watcher, error) {
	if onChange == nil || relevant == nil {
		return nil, os.ErrInvalid
	}

	compiled := make([]glob.Glob, 0, len(excludeFiles))
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	dirSet := make(map[string]bool, len(excludeDirs))
	for _, dir := range excludeDirs {
		dirSet[dir] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  dirSet,
		excludeFiles: compiled,
		relevant:     relevant,
		onChange:     onChange,
		pending:      make(map[string]bool),
		done:         make(chan struct{}),
	}, nil
}

// Watch registers every non-excluded directory under root and starts the
// event loop.
func (w *Watcher) Watch(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excludeDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
	if err != nil {
		return err
	}

	go w.loop()
	return nil
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	// New directories need registering so nested changes keep arriving.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.excludeDirs[filepath.Base(event.Name)] {
				_ = w.fsWatcher.Add(event.Name)
			}
			return
		}
	}

	path := filepath.ToSlash(event.Name)
	if !w.relevant(path) {
		return
	}
	for _, g := range w.excludeFiles {
		if g.Match(path) || g.Match(filepath.Base(path)) {
			return
		}
	}

	observability.WatcherEventsTotal.Inc()

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	select {
	case <-w.done:
		return
	default:
	}
	w.onChange(paths)
}
