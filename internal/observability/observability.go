// Package observability bundles the application's Prometheus metric sets
// behind a single registry.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"faunadex/internal/observability/metrics"
)

// Metrics holds all metric sets. A nil *Metrics (or nil field) disables
// recording; components treat metrics as optional.
type Metrics struct {
	Enrichment *metrics.EnrichmentMetrics
	ImageCache *metrics.ImageCacheMetrics
	registry   *prometheus.Registry
}

// NewMetrics creates a fresh registry with all metric sets registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	enrichment, err := metrics.NewEnrichmentMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment metrics: %w", err)
	}

	imageCache, err := metrics.NewImageCacheMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache metrics: %w", err)
	}

	return &Metrics{
		Enrichment: enrichment,
		ImageCache: imageCache,
		registry:   registry,
	}, nil
}

// Registry exposes the underlying registry for scraping or test assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
