// Package metrics provides custom Prometheus metrics for faunadex components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// EnrichmentMetrics contains all Prometheus metrics related to enrichment
// orchestration and the enrichment cache.
type EnrichmentMetrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	FetchAttempts  *prometheus.CounterVec
	FetchFailures  *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	OfflineSkips   prometheus.Counter
	PersistErrors  prometheus.Counter
	CoalescedCalls prometheus.Counter
	registry       *prometheus.Registry
}

// NewEnrichmentMetrics creates a new instance of EnrichmentMetrics and
// registers it with the given Prometheus registry.
func NewEnrichmentMetrics(registry *prometheus.Registry) (*EnrichmentMetrics, error) {
	m := &EnrichmentMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register enrichment metrics: %w", err)
	}
	return m, nil
}

func (m *EnrichmentMetrics) initMetrics() {
	m.CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_cache_hits_total",
		Help: "Total number of enrichment cache hits.",
	}, []string{"provider"})

	m.CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_cache_misses_total",
		Help: "Total number of enrichment cache misses.",
	}, []string{"provider"})

	m.FetchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_fetch_attempts_total",
		Help: "Total number of provider fetch attempts, including retries.",
	}, []string{"provider"})

	m.FetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_fetch_failures_total",
		Help: "Total number of provider fetches that degraded to absence.",
	}, []string{"provider"})

	m.FetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enrichment_fetch_duration_seconds",
		Help:    "Duration of provider fetches in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"provider"})

	m.OfflineSkips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_offline_skips_total",
		Help: "Total number of enrichment requests short-circuited while offline.",
	})

	m.PersistErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_persist_errors_total",
		Help: "Total number of non-fatal cache persistence failures.",
	})

	m.CoalescedCalls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrichment_coalesced_calls_total",
		Help: "Total number of requests that shared an in-flight enrichment.",
	})
}

// IncrementCacheHits increases the cache hit counter for a provider by one.
func (m *EnrichmentMetrics) IncrementCacheHits(provider string) {
	m.CacheHits.WithLabelValues(provider).Inc()
}

// IncrementCacheMisses increases the cache miss counter for a provider by one.
func (m *EnrichmentMetrics) IncrementCacheMisses(provider string) {
	m.CacheMisses.WithLabelValues(provider).Inc()
}

// IncrementFetchAttempts increases the fetch attempt counter for a provider by one.
func (m *EnrichmentMetrics) IncrementFetchAttempts(provider string) {
	m.FetchAttempts.WithLabelValues(provider).Inc()
}

// IncrementFetchFailures increases the fetch failure counter for a provider by one.
func (m *EnrichmentMetrics) IncrementFetchFailures(provider string) {
	m.FetchFailures.WithLabelValues(provider).Inc()
}

// ObserveFetchDuration records the duration of a provider fetch in seconds.
func (m *EnrichmentMetrics) ObserveFetchDuration(provider string, durationSeconds float64) {
	m.FetchDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// IncrementOfflineSkips increases the offline short-circuit counter by one.
func (m *EnrichmentMetrics) IncrementOfflineSkips() {
	m.OfflineSkips.Inc()
}

// IncrementPersistErrors increases the persistence failure counter by one.
func (m *EnrichmentMetrics) IncrementPersistErrors() {
	m.PersistErrors.Inc()
}

// IncrementCoalescedCalls increases the coalesced request counter by one.
func (m *EnrichmentMetrics) IncrementCoalescedCalls() {
	m.CoalescedCalls.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *EnrichmentMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CacheHits.Collect(ch)
	m.CacheMisses.Collect(ch)
	m.FetchAttempts.Collect(ch)
	m.FetchFailures.Collect(ch)
	m.FetchDuration.Collect(ch)
	ch <- m.OfflineSkips
	ch <- m.PersistErrors
	ch <- m.CoalescedCalls
}

// Describe implements the prometheus.Collector interface.
func (m *EnrichmentMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CacheHits.Describe(ch)
	m.CacheMisses.Describe(ch)
	m.FetchAttempts.Describe(ch)
	m.FetchFailures.Describe(ch)
	m.FetchDuration.Describe(ch)
	ch <- m.OfflineSkips.Desc()
	ch <- m.PersistErrors.Desc()
	ch <- m.CoalescedCalls.Desc()
}
