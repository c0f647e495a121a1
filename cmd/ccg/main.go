package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ccg/internal/core/app"
	"ccg/internal/core/config"
	"ccg/internal/data/query"
	"ccg/internal/data/store"
	"ccg/internal/shared/observability"
)

var (
	configPath = flag.String("config", "", "Path to config file (optional)")
	rootDir    = flag.String("root", ".", "Repository root to analyze")
	repoID     = flag.String("repo", "", "Repository id (defaults to the root directory name)")
	question   = flag.String("question", "", "Free-form relationship question")
	symbol     = flag.String("symbol", "", "Symbol name for a structured query")
	direction  = flag.String("direction", "callees", "Query direction: callers, callees or both")
	depth      = flag.String("depth", "1", "Traversal depth: a number or \"all\"")
	export     = flag.Bool("export", false, "Print the graph document as JSON and exit")
	stats      = flag.Bool("stats", false, "Print snapshot statistics and exit")
	clearCache = flag.Bool("clear-cache", false, "Drop all persisted graphs and exit")
	watch      = flag.Bool("watch", false, "Keep running and rebuild on source changes")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ccg v%s\n", VERSION)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Error("init tracing", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	if cfg.Observability.MetricsAddr != "" {
		go serveMetrics(cfg.Observability.MetricsAddr)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}

	a := app.New(cfg, st)
	defer func() { _ = a.Close(context.Background()) }()

	if *clearCache {
		if err := a.ClearCache(ctx); err != nil {
			slog.Error("clear cache", "error", err)
			os.Exit(1)
		}
		fmt.Println("cache cleared")
		return
	}

	if err := run(ctx, a); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App) error {
	id := *repoID
	if id == "" {
		abs, err := filepath.Abs(*rootDir)
		if err != nil {
			return err
		}
		id = filepath.Base(abs)
	}

	desc, err := a.LoadDirectory(id, *rootDir)
	if err != nil {
		return fmt.Errorf("load directory %q: %w", *rootDir, err)
	}
	if _, err := a.BuildSnapshot(ctx, desc); err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	switch {
	case *export:
		doc, err := a.ExportDocument()
		if err != nil {
			return err
		}
		return printJSON(doc)
	case *stats:
		s, err := a.Stats()
		if err != nil {
			return err
		}
		return printJSON(s)
	case *question != "":
		resp, err := a.Question(ctx, *question)
		if err != nil {
			return err
		}
		return printJSON(resp)
	case *symbol != "":
		q, err := structuredQuery()
		if err != nil {
			return err
		}
		resp, err := a.RunQuery(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(resp)
	}

	if *watch {
		stop, err := a.WatchDirectory(ctx, id, *rootDir)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer stop()
		slog.Info("watching for changes", "root", *rootDir)
		<-ctx.Done()
	}
	return nil
}

func structuredQuery() (query.Query, error) {
	q := query.Query{Target: *symbol}

	switch *direction {
	case "callers":
		q.Direction = query.DirectionCallers
	case "callees":
		q.Direction = query.DirectionCallees
	case "both":
		q.Direction = query.DirectionBoth
	default:
		return query.Query{}, fmt.Errorf("invalid direction %q", *direction)
	}

	if *depth == "all" {
		q.Depth = query.DepthUnbounded
		return q, nil
	}
	n, err := strconv.Atoi(*depth)
	if err != nil || n < 1 {
		return query.Query{}, fmt.Errorf("invalid depth %q", *depth)
	}
	q.Depth = n
	return q, nil
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if *verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics listener started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics listener failed", "error", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
