package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"ccg/internal/core/errors"
	"ccg/internal/engine/graph"
	"ccg/internal/engine/parser"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ccg.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSnapshot(repositoryID, checksum string) *graph.Snapshot {
	files := []*parser.File{
		{
			Path:      "a.py",
			Language:  "python",
			Supported: true,
			Definitions: []parser.Definition{
				{Name: "foo", Kind: parser.KindFunction, StartLine: 1, EndLine: 3},
			},
			CallSites: []parser.CallSite{
				{CalleeText: "bar", Scope: []string{"foo"}, Line: 2},
			},
		},
	}
	table := graph.BuildSymbolTable(files)
	return &graph.Snapshot{
		RepositoryID:   repositoryID,
		SourceChecksum: checksum,
		BuildID:        "build-1",
		BuiltAt:        time.Now().UTC(),
		FileCount:      1,
		Table:          table,
		Graph:          graph.BuildGraph(files, table),
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	snap := testSnapshot("repo", "checksum-1")
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load("repo", "checksum-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BuildID != "build-1" {
		t.Errorf("build id = %q", loaded.BuildID)
	}
	if loaded.Graph.NodeCount() != snap.Graph.NodeCount() {
		t.Errorf("node count = %d, want %d", loaded.Graph.NodeCount(), snap.Graph.NodeCount())
	}
	if _, ok := loaded.Table.Lookup("a.py:foo"); !ok {
		t.Error("loaded table lost a.py:foo")
	}
}

func TestLoad_MissReportsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load("nope", "checksum")
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestLoad_ChecksumMismatchReportsStale(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(testSnapshot("repo", "old")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, err := s.Load("repo", "new")
	if !errors.IsCode(err, errors.CodeStale) {
		t.Fatalf("err = %v, want STALE", err)
	}
}

func TestLoad_CorruptDocumentEvicted(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(testSnapshot("repo", "checksum")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	db, err := sql.Open(driverName, "file:"+s.Path()+"?_pragma=busy_timeout(2000)")
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`UPDATE graphs SET document = ? WHERE repository_id = ?`, []byte("{broken"), "repo"); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	if _, err := s.Load("repo", "checksum"); !errors.IsCode(err, errors.CodeStoreCorrupt) {
		t.Fatalf("err = %v, want STORE_CORRUPT", err)
	}
	// The corrupt row is gone, so the next load is a plain miss.
	if _, err := s.Load("repo", "checksum"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("err after eviction = %v, want NOT_FOUND", err)
	}
}

func TestSave_OverwritesPreviousBuild(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(testSnapshot("repo", "one")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := testSnapshot("repo", "two")
	second.BuildID = "build-2"
	if err := s.Save(second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	loaded, err := s.Load("repo", "two")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BuildID != "build-2" {
		t.Errorf("build id = %q, want build-2", loaded.BuildID)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := openTestStore(t)
	_ = s.Save(testSnapshot("a", "x"))
	_ = s.Save(testSnapshot("b", "y"))

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete absent row: %v", err)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count after delete = %d, want 1", n)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := s.Count(); n != 0 {
		t.Errorf("Count after clear = %d, want 0", n)
	}
}
