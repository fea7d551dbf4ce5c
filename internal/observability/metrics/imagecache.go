package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageCacheMetrics contains all Prometheus metrics related to the on-disk
// media cache.
type ImageCacheMetrics struct {
	CacheSize        prometheus.Gauge
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	Downloads        prometheus.Counter
	DownloadErrors   prometheus.Counter
	Evictions        prometheus.Counter
	DownloadDuration prometheus.Histogram
	registry         *prometheus.Registry
}

// NewImageCacheMetrics creates a new instance of ImageCacheMetrics and
// registers it with the given Prometheus registry.
func NewImageCacheMetrics(registry *prometheus.Registry) (*ImageCacheMetrics, error) {
	m := &ImageCacheMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register image cache metrics: %w", err)
	}
	return m, nil
}

func (m *ImageCacheMetrics) initMetrics() {
	m.CacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "image_cache_size_bytes",
		Help: "Current total size of cached media files in bytes.",
	})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_hits_total",
		Help: "Total number of media cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_misses_total",
		Help: "Total number of media cache misses.",
	})

	m.Downloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_downloads_total",
		Help: "Total number of media downloads.",
	})

	m.DownloadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_download_errors_total",
		Help: "Total number of media download errors.",
	})

	m.Evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_evictions_total",
		Help: "Total number of media entries evicted to satisfy the capacity bound.",
	})

	m.DownloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_cache_download_duration_seconds",
		Help:    "Duration of media downloads in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
}

// SetCacheSize updates the current total size of the media cache in bytes.
func (m *ImageCacheMetrics) SetCacheSize(sizeBytes float64) {
	m.CacheSize.Set(sizeBytes)
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ImageCacheMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ImageCacheMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// IncrementDownloads increases the download counter by one.
func (m *ImageCacheMetrics) IncrementDownloads() {
	m.Downloads.Inc()
}

// IncrementDownloadErrors increases the download error counter by one.
func (m *ImageCacheMetrics) IncrementDownloadErrors() {
	m.DownloadErrors.Inc()
}

// IncrementEvictions increases the eviction counter by one.
func (m *ImageCacheMetrics) IncrementEvictions() {
	m.Evictions.Inc()
}

// ObserveDownloadDuration records the duration of a media download in seconds.
func (m *ImageCacheMetrics) ObserveDownloadDuration(durationSeconds float64) {
	m.DownloadDuration.Observe(durationSeconds)
}

// Collect implements the prometheus.Collector interface.
func (m *ImageCacheMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.CacheSize
	ch <- m.CacheHits
	ch <- m.CacheMisses
	ch <- m.Downloads
	ch <- m.DownloadErrors
	ch <- m.Evictions
	ch <- m.DownloadDuration
}

// Describe implements the prometheus.Collector interface.
func (m *ImageCacheMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.CacheSize.Desc()
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	ch <- m.Downloads.Desc()
	ch <- m.DownloadErrors.Desc()
	ch <- m.Evictions.Desc()
	ch <- m.DownloadDuration.Desc()
}
