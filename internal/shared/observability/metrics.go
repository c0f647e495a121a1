package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ccg_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ParseFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ccg_parse_failures_total",
		Help: "Total number of files skipped due to parse errors or timeouts.",
	}, []string{"reason"})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ccg_build_seconds",
		Help:    "Time spent building one full graph snapshot.",
		Buckets: prometheus.DefBuckets,
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ccg_graph_nodes_total",
		Help: "Number of nodes in the current graph snapshot.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ccg_graph_edges_total",
		Help: "Number of edges in the current graph snapshot.",
	})

	UnresolvedEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ccg_graph_unresolved_edges_total",
		Help: "Number of edges pointing at external placeholder nodes.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ccg_store_cache_hits_total",
		Help: "Total number of snapshot loads served from the store.",
	})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ccg_store_cache_misses_total",
		Help: "Total number of snapshot loads that triggered a rebuild.",
	}, []string{"reason"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ccg_query_seconds",
		Help:    "Time spent answering a graph query.",
		Buckets: prometheus.DefBuckets,
	}, []string{"direction"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ccg_watcher_events_total",
		Help: "Total number of file system events received by the staleness watcher.",
	})
)
