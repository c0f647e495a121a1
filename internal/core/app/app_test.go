package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"ccg/internal/core/config"
	"ccg/internal/data/query"
	"ccg/internal/data/store"
)

func newTestApp(t *testing.T, withStore bool) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Build.Workers = 2

	var st *store.Store
	if withStore {
		var err error
		st, err = store.Open(filepath.Join(t.TempDir(), "ccg.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
	}
	return New(cfg, st)
}

func twoFileDescriptor() SnapshotDescriptor {
	return SnapshotDescriptor{
		RootID: "repo",
		Files: []FileInput{
			{Path: "a.py", Content: []byte("def foo():\n    bar()\n")},
			{Path: "b.py", Content: []byte("def bar():\n    pass\n")},
		},
	}
}

func TestChecksum_OrderIndependent(t *testing.T) {
	desc := twoFileDescriptor()
	flipped := SnapshotDescriptor{
		RootID: desc.RootID,
		Files:  []FileInput{desc.Files[1], desc.Files[0]},
	}
	if desc.Checksum() != flipped.Checksum() {
		t.Error("checksum depends on file order")
	}

	changed := twoFileDescriptor()
	changed.Files[0].Content = []byte("def foo():\n    baz()\n")
	if desc.Checksum() == changed.Checksum() {
		t.Error("checksum ignores content changes")
	}
}

func TestBuildSnapshot_Pipeline(t *testing.T) {
	a := newTestApp(t, false)
	snap, err := a.BuildSnapshot(context.Background(), twoFileDescriptor())
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if snap.FileCount != 2 {
		t.Errorf("file count = %d", snap.FileCount)
	}
	if _, ok := snap.Table.Lookup("a.py:foo"); !ok {
		t.Error("foo missing from table")
	}

	resp, err := a.RunQuery(context.Background(), query.Query{
		Target: "bar", Direction: query.DirectionCallers, Depth: 1,
	})
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Symbol.Name != "foo" {
		t.Fatalf("callers of bar = %+v", resp.Matches)
	}
}

func TestBuildSnapshot_IdenticalInputsIdenticalIDs(t *testing.T) {
	a := newTestApp(t, false)
	ctx := context.Background()

	first, err := a.BuildSnapshot(ctx, twoFileDescriptor())
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.BuildSnapshot(ctx, twoFileDescriptor())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Graph.Symbols(), second.Graph.Symbols()) {
		t.Error("symbol sets differ across identical rebuilds")
	}
	if !reflect.DeepEqual(first.Graph.Edges(), second.Graph.Edges()) {
		t.Error("edge sets differ across identical rebuilds")
	}
}

func TestBuildSnapshot_MalformedFileBecomesDiagnostic(t *testing.T) {
	a := newTestApp(t, false)
	desc := SnapshotDescriptor{
		RootID: "repo",
		Files: []FileInput{
			{Path: "good.py", Content: []byte("def foo():\n    pass\n")},
			{Path: "bad.py", Content: []byte("def (:\n")},
		},
	}
	snap, err := a.BuildSnapshot(context.Background(), desc)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if len(snap.Diagnostics) != 1 || snap.Diagnostics[0].File != "bad.py" {
		t.Fatalf("diagnostics = %+v", snap.Diagnostics)
	}
	if _, ok := snap.Table.Lookup("good.py:foo"); !ok {
		t.Error("good file dropped alongside the bad one")
	}
}

func TestBuildSnapshot_ParseTimeoutBecomesDiagnostic(t *testing.T) {
	a := newTestApp(t, false)
	a.cfg.Build.FileTimeout = time.Nanosecond

	// Large enough that parsing cannot beat a nanosecond budget.
	var src strings.Builder
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&src, "def fn_%d():\n    fn_%d()\n", i, i+1)
	}
	desc := SnapshotDescriptor{
		RootID: "repo",
		Files:  []FileInput{{Path: "slow.py", Content: []byte(src.String())}},
	}

	snap, err := a.BuildSnapshot(context.Background(), desc)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if len(snap.Diagnostics) != 1 || snap.Diagnostics[0].File != "slow.py" {
		t.Fatalf("diagnostics = %+v", snap.Diagnostics)
	}
	if snap.Diagnostics[0].Reason != "parse timed out" {
		t.Errorf("reason = %q, want %q", snap.Diagnostics[0].Reason, "parse timed out")
	}
	if _, ok := snap.Table.Lookup("slow.py:fn_0"); ok {
		t.Error("timed-out file still contributed symbols")
	}
	if snap.FileCount != 1 {
		t.Errorf("file count = %d, want 1", snap.FileCount)
	}
}

func TestBuildSnapshot_AtomicSwap(t *testing.T) {
	a := newTestApp(t, false)
	ctx := context.Background()

	first, err := a.BuildSnapshot(ctx, twoFileDescriptor())
	if err != nil {
		t.Fatal(err)
	}
	held := a.Current()

	changed := twoFileDescriptor()
	changed.Files[1].Content = []byte("def bar():\n    foo()\n")
	second, err := a.BuildSnapshot(ctx, changed)
	if err != nil {
		t.Fatal(err)
	}

	// The held reference still answers from the old graph while the
	// swapped-in snapshot reflects the new content.
	if held.SourceChecksum != first.SourceChecksum {
		t.Error("held snapshot mutated by rebuild")
	}
	if a.Current().SourceChecksum != second.SourceChecksum {
		t.Error("current snapshot not swapped")
	}
	if first.BuildID == second.BuildID {
		t.Error("rebuild reused a build id")
	}
}

func TestBuildSnapshot_CacheHitSkipsReparse(t *testing.T) {
	a := newTestApp(t, true)
	ctx := context.Background()

	first, err := a.BuildSnapshot(ctx, twoFileDescriptor())
	if err != nil {
		t.Fatal(err)
	}

	b := New(a.cfg, a.store)
	cached, err := b.BuildSnapshot(ctx, twoFileDescriptor())
	if err != nil {
		t.Fatal(err)
	}
	if cached.BuildID != first.BuildID {
		t.Errorf("cache miss: build id %q != %q", cached.BuildID, first.BuildID)
	}

	if err := b.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	rebuilt, err := New(a.cfg, a.store).BuildSnapshot(ctx, twoFileDescriptor())
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt.BuildID == first.BuildID {
		t.Error("cleared cache still served the old build")
	}
}

func TestLoadDirectory_AppliesExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(rel, content string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("main.py", "def main():\n    pass\n")
	writeFile("main_test.py", "def test_main():\n    pass\n")
	writeFile("node_modules/dep.js", "function x() {}\n")
	writeFile("README.md", "# hi\n")

	a := newTestApp(t, false)
	a.cfg.Exclude.Files = []string{"*_test.py"}

	desc, err := a.LoadDirectory("repo", dir)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if len(desc.Files) != 1 || desc.Files[0].Path != "main.py" {
		paths := make([]string, 0, len(desc.Files))
		for _, f := range desc.Files {
			paths = append(paths, f.Path)
		}
		t.Fatalf("files = %v, want [main.py]", paths)
	}
}

func TestQueries_RequireSnapshot(t *testing.T) {
	a := newTestApp(t, false)
	if _, err := a.Question(context.Background(), "who calls foo?"); err == nil {
		t.Error("Question without a snapshot should error")
	}
	if _, err := a.ExportDocument(); err == nil {
		t.Error("ExportDocument without a snapshot should error")
	}
	if _, err := a.Stats(); err == nil {
		t.Error("Stats without a snapshot should error")
	}
}
