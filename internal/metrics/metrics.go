// Package metrics declares the Prometheus instrumentation for the symbol
// index: query latency and result counts by operation and backend, shard
// cache hit/miss counts, and shard GC events. Pattern grounded on the
// AleutianFOSS egress package's promauto usage.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryLatencySeconds measures QueryEngine operation latency.
	// Labels: op (lookup_by_id, lookup_by_name, matching, references_to, ...), backend (shardstore, sqlite).
	QueryLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "symindex",
		Subsystem: "query",
		Name:      "latency_seconds",
		Help:      "QueryEngine operation latency by operation and backend",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"op", "backend"})

	// QueryResultsTotal counts results returned, by operation and backend.
	QueryResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "symindex",
		Subsystem: "query",
		Name:      "results_total",
		Help:      "Total result rows returned by operation and backend",
	}, []string{"op", "backend"})

	// CacheHitsTotal / CacheMissesTotal track ShardStore/MemIndex cache
	// effectiveness, by package.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "symindex",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Shard cache hits by package",
	}, []string{"package"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "symindex",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Shard cache misses by package",
	}, []string{"package"})

	// ShardGCTotal counts shard files deleted as stale/superseded/corrupt.
	// Labels: reason (superseded, corrupt, evicted).
	ShardGCTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "symindex",
		Subsystem: "shardstore",
		Name:      "gc_total",
		Help:      "Shard files removed, by reason",
	}, []string{"reason"})

	// UpdateLatencySeconds measures UpdateController.Update end-to-end
	// latency by package.
	UpdateLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "symindex",
		Subsystem: "update",
		Name:      "latency_seconds",
		Help:      "UpdateController.Update latency by package",
		Buckets:   prometheus.DefBuckets,
	}, []string{"package"})
)
