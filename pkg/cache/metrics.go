package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by entry kind (story, list)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_hits_total",
			Help: "Total number of content cache hits",
		},
		[]string{"kind"},
	)

	// CacheMisses tracks cache misses by entry kind
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_misses_total",
			Help: "Total number of content cache misses",
		},
		[]string{"kind"},
	)

	// CacheBypasses tracks loads and saves skipped in preview or dev mode
	CacheBypasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_bypass_total",
			Help: "Total number of cache operations bypassed in preview or dev mode",
		},
		[]string{"operation"}, // "load", "save"
	)

	// CacheWrittenBytes tracks payload bytes written by entry kind
	CacheWrittenBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_written_bytes_total",
			Help: "Total bytes written to the content cache",
		},
		[]string{"kind"},
	)

	// CacheCorruptEntries tracks entries dropped because they could not be decoded
	CacheCorruptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_cache_corrupt_entries_total",
			Help: "Total number of corrupted cache entries removed",
		},
	)

	// CacheInvalidations tracks removed entries per invalidation
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_cache_invalidated_entries_total",
			Help: "Total number of cache entries removed by tag invalidation",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate"
	)
)
