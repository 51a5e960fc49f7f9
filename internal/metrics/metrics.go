// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts catalog reads served from the response cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total number of catalog reads served from the cache",
	})

	// CacheMisses counts catalog reads that had to query the store.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total number of catalog reads that missed the cache",
	})

	// CacheEvictions counts coarse tag evictions triggered by mutations.
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_evictions_total",
		Help: "Total number of cache tag evictions triggered by mutations",
	})

	// HTTPRequestsTotal counts handled HTTP requests by route and outcome.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"method", "path", "status"})
)
