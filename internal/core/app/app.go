package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"ccg/internal/core/config"
	"ccg/internal/data/query"
	"ccg/internal/data/store"
	"ccg/internal/engine/graph"
	"ccg/internal/engine/parser"
	"ccg/internal/shared/util"
)

// App owns the build pipeline and the reference to the current snapshot.
// The snapshot pointer is the only shared mutable state: rebuilds produce
// a whole new snapshot and swap the pointer, so in-flight queries keep
// the snapshot they started with.
type App struct {
	cfg     *config.Config
	parser  *parser.Parser
	store   *store.Store
	engine  *query.Engine
	limiter *util.Limiter

	current atomic.Pointer[graph.Snapshot]
}

// New wires the pipeline. The store may be nil, in which case snapshots
// live only in memory.
func New(cfg *config.Config, st *store.Store) *App {
	return &App{
		cfg:     cfg,
		parser:  parser.NewParser(),
		store:   st,
		engine:  query.NewEngine(),
		limiter: util.NewLimiter(cfg.Build.FilesPerSecond, cfg.Build.Workers),
	}
}

// Current returns the active snapshot, nil before the first build.
func (a *App) Current() *graph.Snapshot {
	return a.current.Load()
}

func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("close store", "error", err)
			return err
		}
	}
	return nil
}
