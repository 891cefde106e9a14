package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/incubatehub/compliance-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	storeQueryDuration *prometheus.HistogramVec
	documentsByStatus  *prometheus.GaugeVec
	actionNeeded       *prometheus.GaugeVec
	complianceScore    *prometheus.GaugeVec
	verifications      *prometheus.CounterVec
	reminders          *prometheus.CounterVec

	cacheHitCount           uint64
	cacheMissCount          uint64
	requestCount            uint64
	requestDurationTotal    uint64
	storeQueryCount         uint64
	storeQueryDurationTotal uint64
	verifiedCount           uint64
	queriedCount            uint64
	reminderCount           uint64
}

// NewMetricsService registers core Prometheus collectors.
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
		Help:    "Latency for cache operations",
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

	storeQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "document_store_query_duration_seconds",
		Help:    "Duration of document store calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	documentsByStatus := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_documents",
		Help: "Compliance documents per effective status at the last overview build",
	}, []string{"company", "status"})

	actionNeeded := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_action_needed_participants",
		Help: "Participants with at least one document needing action",
	}, []string{"company"})

	complianceScore := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_average_score",
		Help: "Average participant compliance score",
	}, []string{"company"})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_verifications_total",
		Help: "Document verifications recorded by reviewers",
	}, []string{"status"})

	reminders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_reminders_published_total",
		Help: "Reminder payloads published to the notifier queue",
	}, []string{"company"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		storeQueryDuration, documentsByStatus, actionNeeded, complianceScore, verifications, reminders, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		storeQueryDuration: storeQueryDuration,
		documentsByStatus:  documentsByStatus,
		actionNeeded:       actionNeeded,
		complianceScore:    complianceScore,
		verifications:      verifications,
		reminders:          reminders,
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
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
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
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

// ObserveStoreQuery records document store call timing.
func (m *MetricsService) ObserveStoreQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.storeQueryCount, 1)
	atomic.AddUint64(&m.storeQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordComplianceStats publishes the gauges of a freshly built overview.
func (m *MetricsService) RecordComplianceStats(companyCode string, stats models.GlobalComplianceStats) {
	if m == nil {
		return
	}
	for _, status := range models.EffectiveStatuses {
		m.documentsByStatus.WithLabelValues(companyCode, string(status)).Set(float64(stats.Counts.Of(status)))
	}
	m.actionNeeded.WithLabelValues(companyCode).Set(float64(stats.ActionNeededCount))
	m.complianceScore.WithLabelValues(companyCode).Set(float64(stats.AvgComplianceScore))
}

// RecordVerification counts a reviewer decision.
func (m *MetricsService) RecordVerification(status models.VerificationStatus) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(string(status)).Inc()
	switch status {
	case models.VerificationVerified:
		atomic.AddUint64(&m.verifiedCount, 1)
	case models.VerificationQueried:
		atomic.AddUint64(&m.queriedCount, 1)
	}
}

// RecordRemindersPublished counts reminder payloads handed to the notifier.
func (m *MetricsService) RecordRemindersPublished(companyCode string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.reminders.WithLabelValues(companyCode).Add(float64(count))
	atomic.AddUint64(&m.reminderCount, uint64(count))
}

// Snapshot returns aggregated metrics suitable for the system metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	storeCount := atomic.LoadUint64(&m.storeQueryCount)
	storeDuration := atomic.LoadUint64(&m.storeQueryDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgStoreMs float64
	if storeCount > 0 {
		avgStoreMs = float64(storeDuration) / float64(storeCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:               cacheRatio,
		CacheHits:                   hits,
		CacheMisses:                 misses,
		RequestsTotal:               requests,
		AverageRequestDurationMs:    avgRequestMs,
		StoreQueryCount:             storeCount,
		AverageStoreQueryDurationMs: avgStoreMs,
		DocumentsVerified:           atomic.LoadUint64(&m.verifiedCount),
		DocumentsQueried:            atomic.LoadUint64(&m.queriedCount),
		RemindersPublished:          atomic.LoadUint64(&m.reminderCount),
		Goroutines:                  runtime.NumGoroutine(),
		GeneratedAt:                 time.Now().UTC(),
	}
}
