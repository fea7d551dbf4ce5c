// Package enrich orchestrates provider fetches and caching into a single
// best-effort composite per taxon.
//
// An enrichment runs as a short pipeline: read the cache, short-circuit
// when offline, fetch only the missing records, persist what arrived, and
// hand the media URLs to the image cache in the background. Concurrent
// requests for the same taxon share one in-flight run.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"faunadex/internal/connectivity"
	"faunadex/internal/enrichcache"
	"faunadex/internal/errors"
	"faunadex/internal/imagecache"
	"faunadex/internal/observability/metrics"
	"faunadex/internal/provider"
	"faunadex/internal/selection"
	"faunadex/internal/taxonomy"
)

// defaultPrefetchTimeout bounds the background image prefetch that
// outlives the originating request.
const defaultPrefetchTimeout = 2 * time.Minute

// EnrichedTaxon is the composite result of one enrichment. Any of the
// record pointers may be nil; Offline reports whether missing records
// were skipped because the network was unavailable.
type EnrichedTaxon struct {
	Taxon   taxonomy.Taxon
	Profile *provider.Record
	Summary *provider.Record
	Media   *provider.Record
	Offline bool
}

// CanonicalName returns the best scientific name for downstream queries:
// the profile's canonical name when available, the taxon's own otherwise.
func (e *EnrichedTaxon) CanonicalName() string {
	if e.Profile != nil && e.Profile.Profile != nil && e.Profile.Profile.CanonicalName != "" {
		return e.Profile.Profile.CanonicalName
	}
	if e.Taxon.CanonicalName != "" {
		return e.Taxon.CanonicalName
	}
	return e.Taxon.ScientificName
}

// Options tunes service behavior.
type Options struct {
	// ImageQuality selects which media variant prefetch and ResolveImage
	// use. Defaults to ClassHD.
	ImageQuality imagecache.Class
	// PrefetchTimeout bounds the background media prefetch.
	PrefetchTimeout time.Duration
}

// Service is the enrichment orchestrator.
type Service struct {
	taxa    *taxonomy.Store
	picker  *selection.Picker
	cache   *enrichcache.Store
	images  *imagecache.Service
	gate    *connectivity.Gate
	profile provider.Provider
	summary provider.Provider
	media   provider.Provider

	opts    Options
	flight  singleflight.Group
	logger  *slog.Logger
	metrics *metrics.EnrichmentMetrics
	wg      sync.WaitGroup
}

// New wires the orchestrator. images, gate, metrics and logger may be
// nil; providers are expected to already carry the resilient fetch
// policy.
func New(
	taxa *taxonomy.Store,
	cache *enrichcache.Store,
	images *imagecache.Service,
	gate *connectivity.Gate,
	profile, summary, media provider.Provider,
	opts Options,
	logger *slog.Logger,
	m *metrics.EnrichmentMetrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ImageQuality == "" {
		opts.ImageQuality = imagecache.ClassHD
	}
	if opts.PrefetchTimeout <= 0 {
		opts.PrefetchTimeout = defaultPrefetchTimeout
	}
	return &Service{
		taxa:    taxa,
		picker:  selection.NewPicker(taxa, logger),
		cache:   cache,
		images:  images,
		gate:    gate,
		profile: profile,
		summary: summary,
		media:   media,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// GetEnrichedByID enriches the taxon with the given index id. Returns
// nil when the taxon does not exist.
func (s *Service) GetEnrichedByID(ctx context.Context, id uint) (*EnrichedTaxon, error) {
	taxon, err := s.taxa.GetByID(id)
	if err != nil {
		return nil, err
	}
	if taxon == nil {
		return nil, nil
	}
	return s.enrich(ctx, taxon)
}

// GetEnrichedByName enriches the taxon matching the given scientific or
// canonical name. Returns nil when no taxon matches.
func (s *Service) GetEnrichedByName(ctx context.Context, name string) (*EnrichedTaxon, error) {
	taxon, err := s.taxa.GetByName(name)
	if err != nil {
		return nil, err
	}
	if taxon == nil {
		return nil, nil
	}
	return s.enrich(ctx, taxon)
}

// PickRandomEnriched picks a random taxon satisfying the filter and
// enriches it. Returns nil when the filter matches nothing.
func (s *Service) PickRandomEnriched(ctx context.Context, filter taxonomy.Filter) (*EnrichedTaxon, error) {
	taxon, err := s.picker.PickRandom(filter)
	if err != nil {
		return nil, err
	}
	if taxon == nil {
		return nil, nil
	}
	return s.enrich(ctx, taxon)
}

// PickOfTheDay enriches the deterministic taxon of the day for the given
// date. Returns nil when the filter matches nothing.
func (s *Service) PickOfTheDay(ctx context.Context, date time.Time, filter taxonomy.Filter) (*EnrichedTaxon, error) {
	taxon, err := s.picker.PickForDate(date, filter)
	if err != nil {
		return nil, err
	}
	if taxon == nil {
		return nil, nil
	}
	return s.enrich(ctx, taxon)
}

// Search returns taxa from the local index matching the query; no
// enrichment, no network.
func (s *Service) Search(query string, limit int) ([]taxonomy.Taxon, error) {
	return s.taxa.SearchText(query, limit)
}

// enrich runs the pipeline for one taxon. Concurrent calls for the same
// taxon id share a single run.
func (s *Service) enrich(ctx context.Context, taxon *taxonomy.Taxon) (*EnrichedTaxon, error) {
	key := fmt.Sprintf("taxon:%d", taxon.ID)
	result, err, shared := s.flight.Do(key, func() (any, error) {
		return s.enrichUncoalesced(ctx, taxon)
	})
	if shared && s.metrics != nil {
		s.metrics.IncrementCoalescedCalls()
	}
	if err != nil {
		return nil, err
	}
	return result.(*EnrichedTaxon), nil
}

// fetchResult carries one provider outcome from a fetch goroutine back
// to the merge loop.
type fetchResult struct {
	kind provider.Kind
	rec  *provider.Record
	err  error
}

func (s *Service) enrichUncoalesced(ctx context.Context, taxon *taxonomy.Taxon) (*EnrichedTaxon, error) {
	enriched := &EnrichedTaxon{Taxon: *taxon}

	cached, err := s.cache.GetAll(taxon.ID)
	if err != nil {
		return nil, err
	}
	for kind, rec := range cached {
		s.assign(enriched, kind, rec)
	}
	if s.metrics != nil {
		for _, kind := range provider.Kinds() {
			if cached[kind] != nil {
				s.metrics.IncrementCacheHits(string(kind))
			} else {
				s.metrics.IncrementCacheMisses(string(kind))
			}
		}
	}

	needProfile := enriched.Profile == nil
	needSummary := enriched.Summary == nil
	needMedia := enriched.Media == nil
	if !needProfile && !needSummary && !needMedia {
		return enriched, nil
	}

	if s.gate != nil && !s.gate.IsOnline(ctx) {
		if s.metrics != nil {
			s.metrics.IncrementOfflineSkips()
		}
		s.logger.Debug("enrichment skipped missing records while offline",
			"taxon_id", taxon.ID)
		enriched.Offline = true
		return enriched, nil
	}

	name := taxon.ScientificName
	if name == "" {
		name = taxon.CanonicalName
	}

	// Profile and summary fetch concurrently; the merge loop below is the
	// only writer into the composite.
	results := make(chan fetchResult, 2)
	launched := 0
	if needProfile {
		launched++
		go func() {
			rec, err := s.profile.FetchByName(ctx, name)
			results <- fetchResult{kind: provider.KindGBIF, rec: rec, err: err}
		}()
	}
	if needSummary {
		launched++
		go func() {
			rec, err := s.summary.FetchByName(ctx, name)
			results <- fetchResult{kind: provider.KindWikipedia, rec: rec, err: err}
		}()
	}

	var fetched []*provider.Record
	var fetchErr error
	for i := 0; i < launched; i++ {
		res := <-results
		if res.err != nil {
			fetchErr = res.err
			continue
		}
		if res.rec != nil {
			s.assign(enriched, res.kind, res.rec)
			fetched = append(fetched, res.rec)
		}
	}
	if fetchErr != nil {
		// Only cancellation escapes the resilient layer; stop here rather
		// than starting more work on a dead context.
		return nil, fetchErr
	}

	// Media waits for the profile: its query works best with the resolved
	// canonical name, falling back to the taxon's own name.
	if needMedia {
		rec, err := s.media.FetchByName(ctx, enriched.CanonicalName())
		if err != nil {
			return nil, err
		}
		if rec != nil {
			s.assign(enriched, provider.KindINaturalist, rec)
			fetched = append(fetched, rec)
		}
	}

	if len(fetched) > 0 {
		if err := s.cache.Put(taxon.ID, fetched...); err != nil {
			// Persistence failure degrades durability, not the response
			if s.metrics != nil {
				s.metrics.IncrementPersistErrors()
			}
			s.logger.Warn("failed to persist enrichment records",
				"taxon_id", taxon.ID, "error", err)
		}
	}

	s.prefetchImages(enriched)
	return enriched, nil
}

func (s *Service) assign(enriched *EnrichedTaxon, kind provider.Kind, rec *provider.Record) {
	switch kind {
	case provider.KindGBIF:
		enriched.Profile = rec
	case provider.KindWikipedia:
		enriched.Summary = rec
	case provider.KindINaturalist:
		enriched.Media = rec
	}
}

// prefetchImages warms the media cache for the primary photo without
// blocking the response. The download runs on a background context so it
// survives the originating request, bounded by the prefetch timeout.
func (s *Service) prefetchImages(enriched *EnrichedTaxon) {
	if s.images == nil || enriched.Media == nil || enriched.Media.Media == nil {
		return
	}
	items := enriched.Media.Media.Items
	if len(items) == 0 {
		return
	}
	url := s.imageURL(items[0])
	if url == "" {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.PrefetchTimeout)
		defer cancel()

		if _, err := s.images.Resolve(ctx, url, s.opts.ImageQuality); err != nil {
			s.logger.Debug("image prefetch failed",
				"taxon_id", enriched.Taxon.ID, "error", err)
		}
	}()
}

func (s *Service) imageURL(item provider.MediaItem) string {
	if s.opts.ImageQuality == imagecache.ClassThumb && item.ThumbURL != "" {
		return item.ThumbURL
	}
	return item.URL
}

// ResolveImage returns the local path of the enriched taxon's primary
// photo, downloading it if needed. Returns the empty string when the
// taxon has no media.
func (s *Service) ResolveImage(ctx context.Context, enriched *EnrichedTaxon) (string, error) {
	if enriched == nil || enriched.Media == nil || enriched.Media.Media == nil {
		return "", nil
	}
	items := enriched.Media.Media.Items
	if len(items) == 0 {
		return "", nil
	}
	url := s.imageURL(items[0])
	if url == "" {
		return "", nil
	}
	if s.images == nil {
		return "", errors.Newf("media cache is not configured").
			Category(errors.CategoryConfiguration).
			Component("enrich").
			Build()
	}
	return s.images.Resolve(ctx, url, s.opts.ImageQuality)
}

// ResolveImageURL returns the local path for an arbitrary media URL in
// the given resolution class, downloading it if needed.
func (s *Service) ResolveImageURL(ctx context.Context, rawURL string, class imagecache.Class) (string, error) {
	if s.images == nil {
		return "", errors.Newf("media cache is not configured").
			Category(errors.CategoryConfiguration).
			Component("enrich").
			Build()
	}
	return s.images.Resolve(ctx, rawURL, class)
}

// SetForcedOffline toggles the persisted user override on the
// connectivity gate.
func (s *Service) SetForcedOffline(forced bool) error {
	if s.gate == nil {
		return errors.Newf("connectivity gate is not configured").
			Category(errors.CategoryConfiguration).
			Component("enrich").
			Build()
	}
	return s.gate.ForceOffline(forced)
}

// ForcedOffline reports whether the user override is set.
func (s *Service) ForcedOffline() bool {
	return s.gate != nil && s.gate.ForcedOffline()
}

// CacheUsageBytes returns the current size of the media cache.
func (s *Service) CacheUsageBytes() (int64, error) {
	if s.images == nil {
		return 0, nil
	}
	return s.images.UsageBytes()
}

// ClearImageCache removes all cached media files.
func (s *Service) ClearImageCache() error {
	if s.images == nil {
		return nil
	}
	return s.images.Clear()
}

// ClearEnrichmentCache removes all cached provider records.
func (s *Service) ClearEnrichmentCache() error {
	return s.cache.Clear()
}

// Close waits for background prefetches to finish.
func (s *Service) Close() {
	s.wg.Wait()
}
