package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation of the agenda API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	storeRead       *prometheus.HistogramVec
	occurrences     *prometheus.HistogramVec
	expansions      *prometheus.CounterVec
	denials         *prometheus.CounterVec
	rejections      *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	storeRead := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agenda_store_read_seconds",
		Help:    "Duration of agenda store reads by source",
		Buckets: prometheus.DefBuckets,
	}, []string{"source", "outcome"})

	occurrences := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agenda_occurrences_returned",
		Help:    "Occurrences returned per agenda query",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"endpoint"})

	expansions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agenda_template_expansions_total",
		Help: "Recurring templates expanded, by result",
	}, []string{"result"})

	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agenda_visibility_denials_total",
		Help: "Requests whose personal-session visibility failed closed",
	}, []string{"role"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agenda_queries_rejected_total",
		Help: "Agenda queries rejected before store access",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		storeRead, occurrences, expansions, denials, rejections, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		storeRead:       storeRead,
		occurrences:     occurrences,
		expansions:      expansions,
		denials:         denials,
		rejections:      rejections,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStoreRead records the duration of one agenda source read.
func (m *MetricsService) ObserveStoreRead(source string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storeRead.WithLabelValues(source, outcome).Observe(duration.Seconds())
}

// ObserveOccurrences records the size of one agenda response.
func (m *MetricsService) ObserveOccurrences(endpoint string, count int) {
	if m == nil {
		return
	}
	m.occurrences.WithLabelValues(endpoint).Observe(float64(count))
}

// RecordExpansions counts expanded and skipped templates of one merge.
func (m *MetricsService) RecordExpansions(expanded, skipped int) {
	if m == nil {
		return
	}
	if expanded > 0 {
		m.expansions.WithLabelValues("expanded").Add(float64(expanded))
	}
	if skipped > 0 {
		m.expansions.WithLabelValues("skipped").Add(float64(skipped))
	}
}

// RecordVisibilityDenial counts a fail-closed visibility resolution.
func (m *MetricsService) RecordVisibilityDenial(role string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(role).Inc()
}

// RecordRejection counts an agenda query rejected during validation.
func (m *MetricsService) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}
