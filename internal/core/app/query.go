package app

import (
	"context"
	"time"

	"ccg/internal/core/errors"
	"ccg/internal/data/query"
	"ccg/internal/engine/graph"
	"ccg/internal/shared/observability"
)

// Question answers a free-form relationship question against the current
// snapshot.
func (a *App) Question(ctx context.Context, question string) (query.Response, error) {
	snap := a.Current()
	if snap == nil {
		return query.Response{}, errors.New(errors.CodeValidationError, "no snapshot built yet")
	}

	ctx, span := observability.Tracer.Start(ctx, "app.Question")
	defer span.End()

	started := time.Now()
	resp, err := a.engine.Question(ctx, snap, question)
	if err == nil {
		observability.QueryDuration.WithLabelValues("question").Observe(time.Since(started).Seconds())
	}
	return resp, err
}

// RunQuery answers a structured query against the current snapshot.
func (a *App) RunQuery(ctx context.Context, q query.Query) (query.Response, error) {
	snap := a.Current()
	if snap == nil {
		return query.Response{}, errors.New(errors.CodeValidationError, "no snapshot built yet")
	}

	ctx, span := observability.Tracer.Start(ctx, "app.RunQuery")
	defer span.End()

	started := time.Now()
	resp, err := a.engine.Run(ctx, snap, q)
	if err == nil {
		observability.QueryDuration.WithLabelValues(string(q.Direction)).Observe(time.Since(started).Seconds())
	}
	return resp, err
}

// ExportDocument renders the current snapshot as a graph document.
func (a *App) ExportDocument() (graph.Document, error) {
	snap := a.Current()
	if snap == nil {
		return graph.Document{}, errors.New(errors.CodeValidationError, "no snapshot built yet")
	}
	return snap.Document(), nil
}

// ClearCache drops every persisted graph. The in-memory snapshot stays
// active so running queries keep working; the next build reparses.
func (a *App) ClearCache(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.store == nil {
		return nil
	}
	return a.store.Clear()
}

// Stats summarizes the current snapshot.
type Stats struct {
	RepositoryID string    `json:"repository_id"`
	BuildID      string    `json:"build_id"`
	BuiltAt      time.Time `json:"built_at"`
	FileCount    int       `json:"file_count"`
	NodeCount    int       `json:"node_count"`
	EdgeCount    int       `json:"edge_count"`
	Diagnostics  int       `json:"diagnostics"`
}

func (a *App) Stats() (Stats, error) {
	snap := a.Current()
	if snap == nil {
		return Stats{}, errors.New(errors.CodeValidationError, "no snapshot built yet")
	}
	return Stats{
		RepositoryID: snap.RepositoryID,
		BuildID:      snap.BuildID,
		BuiltAt:      snap.BuiltAt,
		FileCount:    snap.FileCount,
		NodeCount:    snap.Graph.NodeCount(),
		EdgeCount:    snap.Graph.EdgeCount(),
		Diagnostics:  len(snap.Diagnostics),
	}, nil
}
