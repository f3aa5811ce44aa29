package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	primaryHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orderflow",
		Subsystem: "order_store",
		Name:      "primary_healthy",
		Help:      "1 when the primary order store is assumed reachable.",
	})
	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orderflow",
		Subsystem: "order_store",
		Name:      "cache_entries",
		Help:      "Entries currently held by the local order cache.",
	})
	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "order_store",
		Name:      "fallback_total",
		Help:      "Operations served by the local cache instead of the primary store.",
	}, []string{"op"})
	resyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "order_store",
		Name:      "resync_total",
		Help:      "Cache entries re-written to the primary store after recovery.",
	}, []string{"result"})
	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "order_store",
		Name:      "cache_evictions_total",
		Help:      "Live cache entries evicted because the cache was full.",
	})
)
