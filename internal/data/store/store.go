package store

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ccg/internal/core/errors"
	"ccg/internal/engine/graph"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store persists built graph documents keyed by repository id. One row per
// repository holds the full JSON document plus the source checksum used for
// staleness checks.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts when builds and queries
	// overlap.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Save upserts the snapshot's document under its repository id,
// replacing any previous build for that repository.
func (s *Store) Save(snap *graph.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap == nil || snap.RepositoryID == "" {
		return errors.New(errors.CodeValidationError, "snapshot must carry a repository id")
	}

	doc := snap.Document()
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode graph document: %w", err)
	}

	query := `
INSERT INTO graphs (
  repository_id, source_checksum, build_id, built_at_utc, file_count, node_count, edge_count, document
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(repository_id) DO UPDATE SET
  source_checksum=excluded.source_checksum,
  build_id=excluded.build_id,
  built_at_utc=excluded.built_at_utc,
  file_count=excluded.file_count,
  node_count=excluded.node_count,
  edge_count=excluded.edge_count,
  document=excluded.document
`
	return s.withRetry("save graph", func() error {
		_, err := s.db.Exec(
			query,
			snap.RepositoryID,
			snap.SourceChecksum,
			snap.BuildID,
			snap.BuiltAt.UTC().Format(time.RFC3339Nano),
			snap.FileCount,
			snap.Graph.NodeCount(),
			snap.Graph.EdgeCount(),
			payload,
		)
		return err
	})
}

// Load returns the persisted snapshot for a repository when its stored
// checksum matches the current source checksum. A missing row reports
// NOT_FOUND, a checksum mismatch reports STALE, and an unreadable or
// structurally invalid document is evicted and reported STORE_CORRUPT.
// Callers treat all three as a cache miss followed by a rebuild.
func (s *Store) Load(repositoryID, sourceChecksum string) (*graph.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		storedChecksum string
		payload        []byte
	)
	err := s.withRetry("load graph", func() error {
		row := s.db.QueryRow(
			`SELECT source_checksum, document FROM graphs WHERE repository_id = ?`,
			repositoryID,
		)
		return row.Scan(&storedChecksum, &payload)
	})
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.AddContext(
				errors.New(errors.CodeNotFound, "no cached graph for repository"),
				errors.CtxRepository, repositoryID)
		}
		if IsCorruptError(err) {
			return nil, errors.Wrap(err, errors.CodeStoreCorrupt, "sqlite store unreadable")
		}
		return nil, err
	}

	if storedChecksum != sourceChecksum {
		return nil, errors.AddContext(
			errors.New(errors.CodeStale, "cached graph built from different sources"),
			errors.CtxRepository, repositoryID)
	}

	var doc graph.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		s.evict(repositoryID)
		return nil, errors.Wrap(err, errors.CodeStoreCorrupt, "decode graph document")
	}
	snap, err := graph.SnapshotFromDocument(doc)
	if err != nil {
		s.evict(repositoryID)
		return nil, err
	}
	return snap, nil
}

// Delete removes one repository's cached graph. Deleting a repository
// that was never cached is not an error.
func (s *Store) Delete(repositoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("delete graph", func() error {
		_, err := s.db.Exec(`DELETE FROM graphs WHERE repository_id = ?`, repositoryID)
		return err
	})
}

// Clear drops every cached graph.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("clear graphs", func() error {
		_, err := s.db.Exec(`DELETE FROM graphs`)
		return err
	})
}

// Count reports how many repositories have a cached graph.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.withRetry("count graphs", func() error {
		return s.db.QueryRow(`SELECT COUNT(*) FROM graphs`).Scan(&n)
	})
	return n, err
}

func (s *Store) evict(repositoryID string) {
	_ = s.withRetry("evict graph", func() error {
		_, err := s.db.Exec(`DELETE FROM graphs WHERE repository_id = ?`, repositoryID)
		return err
	})
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database")
}
