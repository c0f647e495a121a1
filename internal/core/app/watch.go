package app

import (
	"context"
	"log/slog"

	"ccg/internal/core/watcher"
)

// WatchDirectory rebuilds the snapshot whenever supported source files
// under dir change. A rebuild over unchanged content is caught by the
// store's checksum check and costs one cache load. The returned stop
// function shuts the watcher down.
func (a *App) WatchDirectory(ctx context.Context, rootID, dir string) (func(), error) {
	w, err := watcher.New(
		a.cfg.Build.WatchDebounce,
		a.cfg.Exclude.Dirs,
		a.cfg.Exclude.Files,
		a.parser.IsSupportedPath,
		func(paths []string) {
			slog.Info("source changed, rebuilding", "repository", rootID, "changed", len(paths))
			desc, err := a.LoadDirectory(rootID, dir)
			if err != nil {
				slog.Error("reload directory", "repository", rootID, "error", err)
				return
			}
			if _, err := a.BuildSnapshot(ctx, desc); err != nil {
				slog.Error("rebuild snapshot", "repository", rootID, "error", err)
			}
		},
	)
	if err != nil {
		return nil, err
	}
	if err := w.Watch(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return func() { _ = w.Close() }, nil
}
