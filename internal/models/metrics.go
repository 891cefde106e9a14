package models

import "time"

// SystemMetrics represents system level figures captured from instrumentation.
type SystemMetrics struct {
	CacheHitRatio               float64   `json:"cache_hit_ratio"`
	CacheHits                   uint64    `json:"cache_hits"`
	CacheMisses                 uint64    `json:"cache_misses"`
	RequestsTotal               uint64    `json:"requests_total"`
	AverageRequestDurationMs    float64   `json:"average_request_duration_ms"`
	StoreQueryCount             uint64    `json:"store_query_count"`
	AverageStoreQueryDurationMs float64   `json:"average_store_query_duration_ms"`
	DocumentsVerified           uint64    `json:"documents_verified"`
	DocumentsQueried            uint64    `json:"documents_queried"`
	RemindersPublished          uint64    `json:"reminders_published"`
	Goroutines                  int       `json:"goroutines"`
	GeneratedAt                 time.Time `json:"generated_at"`
}
