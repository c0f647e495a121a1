package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ccg/internal/core/errors"
	"ccg/internal/engine/graph"
	"ccg/internal/engine/parser"
	"ccg/internal/shared/observability"
)

// FileInput is one file of a repository snapshot descriptor. Language may
// be empty, in which case it is detected from the path.
type FileInput struct {
	Path     string `json:"path"`
	Content  []byte `json:"content"`
	Language string `json:"language,omitempty"`
}

// SnapshotDescriptor is the input boundary: the upstream collaborator has
// already selected and filtered the file set.
type SnapshotDescriptor struct {
	RootID string      `json:"root_id"`
	Files  []FileInput `json:"files"`
}

// Checksum hashes the full file set, order independent. Two descriptors
// with identical paths and contents always hash the same.
func (d SnapshotDescriptor) Checksum() string {
	files := append([]FileInput(nil), d.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BuildSnapshot produces and activates a snapshot for the descriptor.
// When the store already holds a graph built from an identical file set,
// that graph is activated without reparsing. Otherwise files are parsed
// in parallel, reduced into a symbol table once all parse tasks finish,
// and the built snapshot is persisted and swapped in atomically.
func (a *App) BuildSnapshot(ctx context.Context, desc SnapshotDescriptor) (*graph.Snapshot, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.BuildSnapshot",
		trace.WithAttributes(attribute.String("repository", desc.RootID)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if desc.RootID == "" {
		return nil, errors.New(errors.CodeValidationError, "descriptor must carry a root id")
	}

	checksum := desc.Checksum()
	if cached := a.loadCached(desc.RootID, checksum); cached != nil {
		a.activate(cached)
		return cached, nil
	}

	started := time.Now()
	files, diagnostics, err := a.parseAll(ctx, desc.Files)
	if err != nil {
		return nil, err
	}

	table := graph.BuildSymbolTable(files)
	g := graph.BuildGraph(files, table)

	snap := &graph.Snapshot{
		RepositoryID:   desc.RootID,
		SourceChecksum: checksum,
		BuildID:        uuid.NewString(),
		BuiltAt:        time.Now().UTC(),
		FileCount:      len(desc.Files),
		Diagnostics:    diagnostics,
		Table:          table,
		Graph:          g,
	}

	observability.BuildDuration.Observe(time.Since(started).Seconds())
	slog.Info("graph built",
		"repository", desc.RootID,
		"files", snap.FileCount,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"diagnostics", len(diagnostics),
		"duration", time.Since(started))

	if a.store != nil {
		if err := a.store.Save(snap); err != nil {
			// Persistence failure never fails the build.
			slog.Warn("persist snapshot", "repository", desc.RootID, "error", err)
		}
	}
	a.activate(snap)
	return snap, nil
}

func (a *App) loadCached(rootID, checksum string) *graph.Snapshot {
	if a.store == nil {
		return nil
	}
	snap, err := a.store.Load(rootID, checksum)
	if err == nil {
		observability.CacheHitsTotal.Inc()
		slog.Debug("snapshot cache hit", "repository", rootID)
		return snap
	}

	reason := "error"
	switch {
	case errors.IsCode(err, errors.CodeNotFound):
		reason = "not_found"
	case errors.IsCode(err, errors.CodeStale):
		reason = "stale"
	case errors.IsCode(err, errors.CodeStoreCorrupt):
		reason = "corrupt"
		slog.Warn("cached snapshot corrupt, rebuilding", "repository", rootID, "error", err)
	}
	observability.CacheMissesTotal.WithLabelValues(reason).Inc()
	return nil
}

// parseAll fans file parsing out across the worker pool. Parse failures
// and timeouts become diagnostics, never build failures; only context
// cancellation aborts the run.
func (a *App) parseAll(ctx context.Context, inputs []FileInput) ([]*parser.File, []parser.Diagnostic, error) {
	results := make([]*parser.File, len(inputs))
	diags := make([]*parser.Diagnostic, len(inputs))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(a.cfg.Build.Workers)
	for i, input := range inputs {
		grp.Go(func() error {
			if err := a.limiter.Wait(ctx, 1); err != nil {
				return err
			}
			results[i], diags[i] = a.parseOne(ctx, input)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}

	files := make([]*parser.File, 0, len(inputs))
	diagnostics := make([]parser.Diagnostic, 0)
	for i := range inputs {
		if results[i] != nil {
			files = append(files, results[i])
		}
		if diags[i] != nil {
			diagnostics = append(diagnostics, *diags[i])
		}
	}
	sort.Slice(diagnostics, func(i, j int) bool { return diagnostics[i].File < diagnostics[j].File })
	return files, diagnostics, nil
}

type parseResult struct {
	file *parser.File
	err  error
}

func (a *App) parseOne(ctx context.Context, input FileInput) (*parser.File, *parser.Diagnostic) {
	language := input.Language
	if language == "" {
		language = a.parser.DetectLanguage(input.Path)
	}
	if language != "" && !a.cfg.LanguageEnabled(language) {
		language = ""
	}

	started := time.Now()
	done := make(chan parseResult, 1)
	go func() {
		f, err := a.parser.ParseFile(input.Path, input.Content, language)
		done <- parseResult{file: f, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			observability.ParseFailuresTotal.WithLabelValues("parse_error").Inc()
			slog.Debug("parse failed", "file", input.Path, "error", res.err)
			return nil, &parser.Diagnostic{File: input.Path, Reason: res.err.Error()}
		}
		if res.file.Supported {
			observability.ParsingDuration.WithLabelValues(language).Observe(time.Since(started).Seconds())
		}
		return res.file, nil
	case <-time.After(a.cfg.Build.FileTimeout):
		// The stuck goroutine is abandoned; its late result lands in the
		// buffered channel and gets collected.
		observability.ParseFailuresTotal.WithLabelValues("timeout").Inc()
		slog.Warn("parse timed out", "file", input.Path, "timeout", a.cfg.Build.FileTimeout)
		return nil, &parser.Diagnostic{File: input.Path, Reason: "parse timed out"}
	case <-ctx.Done():
		return nil, &parser.Diagnostic{File: input.Path, Reason: ctx.Err().Error()}
	}
}

func (a *App) activate(snap *graph.Snapshot) {
	a.current.Store(snap)
	observability.GraphNodes.Set(float64(snap.Graph.NodeCount()))
	observability.GraphEdges.Set(float64(snap.Graph.EdgeCount()))

	unresolved := 0
	for _, e := range snap.Graph.Edges() {
		if !e.Resolved {
			unresolved++
		}
	}
	observability.UnresolvedEdges.Set(float64(unresolved))
}
