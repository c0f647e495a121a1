package watcher

import (
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T, changes chan []string) *Watcher {
	t.Helper()
	w, err := New(
		20*time.Millisecond,
		[]string{"node_modules"},
		[]string{"*_test.py"},
		func(path string) bool { return strings.HasSuffix(path, ".py") },
		func(paths []string) { changes <- paths },
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWatcher_DebouncesBurstIntoOneCallback(t *testing.T) {
	changes := make(chan []string, 1)
	w := newTestWatcher(t, changes)

	w.handle(fsnotify.Event{Name: "src/a.py", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "src/a.py", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "src/b.py", Op: fsnotify.Write})

	select {
	case paths := <-changes:
		if len(paths) != 2 {
			t.Errorf("paths = %v, want 2 distinct entries", paths)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}

	select {
	case paths := <-changes:
		t.Fatalf("second callback for the same burst: %v", paths)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresIrrelevantAndExcluded(t *testing.T) {
	changes := make(chan []string, 1)
	w := newTestWatcher(t, changes)

	w.handle(fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "src/a_test.py", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "src/a.py", Op: fsnotify.Chmod})

	select {
	case paths := <-changes:
		t.Fatalf("callback fired for ignored events: %v", paths)
	case <-time.After(100 * time.Millisecond):
	}
}
