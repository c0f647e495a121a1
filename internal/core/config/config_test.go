package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ccg.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "version = 1\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Build.Workers <= 0 {
		t.Errorf("workers = %d", cfg.Build.Workers)
	}
	if cfg.Build.FileTimeout != 10*time.Second {
		t.Errorf("file timeout = %v", cfg.Build.FileTimeout)
	}
	if cfg.Store.Path != "ccg.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if !cfg.LanguageEnabled("python") {
		t.Error("python not enabled by default")
	}
}

func TestLoad_RejectsUnknownLanguage(t *testing.T) {
	_, err := Load(writeConfig(t, "version = 1\nlanguages = [\"cobol\"]\n"))
	if err == nil {
		t.Fatal("expected an error for unknown language")
	}
}

func TestLoad_RejectsBadGlob(t *testing.T) {
	_, err := Load(writeConfig(t, "version = 1\n[exclude]\nfiles = [\"[\"]\n"))
	if err == nil {
		t.Fatal("expected an error for invalid glob")
	}
}

func TestLoad_RejectsBadLogLevel(t *testing.T) {
	_, err := Load(writeConfig(t, "version = 1\n[log]\nlevel = \"loud\"\n"))
	if err == nil {
		t.Fatal("expected an error for bad log level")
	}
}

func TestLoad_CompilesExcludeGlobs(t *testing.T) {
	cfg, err := Load(writeConfig(t, "version = 1\n[exclude]\nfiles = [\"*_test.py\", \"generated/*\"]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.fileGlobs) != 2 {
		t.Fatalf("compiled globs = %d, want 2", len(cfg.fileGlobs))
	}
	if !cfg.FileExcluded("generated/out.py") {
		t.Error("generated/out.py should be excluded")
	}
	if cfg.FileExcluded("main.py") {
		t.Error("main.py should not be excluded")
	}
}

func TestExcludeMatching(t *testing.T) {
	cfg := Default()
	cfg.Exclude.Files = []string{"*_test.py", "generated/*"}

	if !cfg.FileExcluded("foo_test.py") {
		t.Error("foo_test.py should be excluded")
	}
	if cfg.FileExcluded("foo.py") {
		t.Error("foo.py should not be excluded")
	}
	if !cfg.DirExcluded("node_modules") {
		t.Error("node_modules should be excluded")
	}
}
