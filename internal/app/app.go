// Package app wires configuration, storage, connectivity, providers and
// the enrichment orchestrator into one runnable application.
package app

import (
	"log/slog"
	"time"

	"faunadex/internal/conf"
	"faunadex/internal/connectivity"
	"faunadex/internal/datastore"
	"faunadex/internal/enrich"
	"faunadex/internal/enrichcache"
	"faunadex/internal/errors"
	"faunadex/internal/httpclient"
	"faunadex/internal/imagecache"
	"faunadex/internal/logging"
	"faunadex/internal/observability"
	"faunadex/internal/provider"
	"faunadex/internal/taxonomy"
)

// App holds the wired application components.
type App struct {
	Settings *conf.Settings
	Enrich   *enrich.Service
	Metrics  *observability.Metrics
	Gate     *connectivity.Gate
	Taxa     *taxonomy.Store

	httpClient *httpclient.Client
	logger     *slog.Logger
}

// New wires the application from settings. The taxonomy index must exist;
// the cache database and media directory are created on demand.
func New(settings *conf.Settings) (*App, error) {
	logger := logging.ForService("app")

	obs, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	taxa, err := taxonomy.Open(settings.Taxonomy.Database, logging.ForService("taxonomy"))
	if err != nil {
		return nil, err
	}

	cacheDB, err := datastore.Open(settings.Cache.Database, settings.Debug)
	if err != nil {
		return nil, err
	}

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: time.Duration(settings.Providers.Timeout) * time.Second,
		UserAgent:      settings.Providers.UserAgent,
	})

	gate := connectivity.New(
		client,
		settings.Connectivity.ProbeURL,
		time.Duration(settings.Connectivity.ProbeTTL)*time.Second,
		cacheDB,
		logging.ForService("connectivity"),
	)

	cache, err := enrichcache.New(cacheDB, logging.ForService("enrichcache"))
	if err != nil {
		return nil, err
	}

	images, err := imagecache.New(
		cacheDB,
		client,
		settings.Images.Path,
		settings.Images.MaxBytes,
		logging.ForService("imagecache"),
		obs.ImageCache,
	)
	if err != nil {
		return nil, err
	}

	quality := imagecache.Class(settings.Images.Quality)
	switch quality {
	case imagecache.ClassHD, imagecache.ClassThumb:
	default:
		return nil, errors.Newf("unknown image quality %q", settings.Images.Quality).
			Category(errors.CategoryConfiguration).
			Component("app").
			Build()
	}

	gbif := provider.NewResilient(
		provider.NewGBIF(client, settings.Providers.GBIF.Endpoint, logging.ForService("gbif")),
		gate, logging.ForService("gbif"), obs.Enrichment)
	wikipedia := provider.NewResilient(
		provider.NewWikipedia(client, settings.Providers.Wikipedia.Endpoint, logging.ForService("wikipedia")),
		gate, logging.ForService("wikipedia"), obs.Enrichment)
	inaturalist := provider.NewResilient(
		provider.NewINaturalist(client, settings.Providers.INaturalist.Endpoint, logging.ForService("inaturalist")),
		gate, logging.ForService("inaturalist"), obs.Enrichment)

	service := enrich.New(
		taxa, cache, images, gate,
		gbif, wikipedia, inaturalist,
		enrich.Options{ImageQuality: quality},
		logging.ForService("enrich"),
		obs.Enrichment,
	)

	return &App{
		Settings:   settings,
		Enrich:     service,
		Metrics:    obs,
		Gate:       gate,
		Taxa:       taxa,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Close drains background work and releases network resources.
func (a *App) Close() {
	a.Enrich.Close()
	a.httpClient.Close()
}
