package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var LoadsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_loads_started_total",
}, []string{"host"})
var LoadsSucceeded = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_loads_succeeded_total",
}, []string{"host"})
var LoadsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_loads_failed_total",
}, []string{"host", "reason"})
var LoadTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "preload_load_time_seconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
}, []string{"host"})
var LoadRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_load_retries_total",
}, []string{"host"})
var ActiveLoads = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "preload_active_loads",
})
var QueuedLoads = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "preload_queued_loads",
})
var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_cache_hits_total",
}, []string{"cache"})
var CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_cache_misses_total",
}, []string{"cache"})
var CacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_cache_evictions_total",
}, []string{"cache", "reason"})
var CacheNumItems = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "preload_cache_num_items",
}, []string{"cache", "state"})
var IndexChanges = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "preload_index_changes_total",
})
var DebugRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "preload_debug_requests_total",
}, []string{"action", "method", "statusCode"})

func init() {
	prometheus.MustRegister(LoadsStarted)
	prometheus.MustRegister(LoadsSucceeded)
	prometheus.MustRegister(LoadsFailed)
	prometheus.MustRegister(LoadTime)
	prometheus.MustRegister(LoadRetries)
	prometheus.MustRegister(ActiveLoads)
	prometheus.MustRegister(QueuedLoads)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CacheEvictions)
	prometheus.MustRegister(CacheNumItems)
	prometheus.MustRegister(IndexChanges)
	prometheus.MustRegister(DebugRequests)
}
