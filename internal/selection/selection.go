// Package selection picks taxa from the local index without filtered
// aggregate queries.
//
// Both entry points share the same strategy: draw a starting id uniformly
// from the unfiltered primary-key range, then scan forward for the first
// row satisfying the filter, wrapping around to the bottom of the range
// once. The distribution is slightly biased toward rows that follow sparse
// regions; that is accepted in exchange for never running a filtered
// COUNT/MIN/MAX over a multi-million-row table.
package selection

import (
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"time"

	"faunadex/internal/taxonomy"
)

// Picker selects taxa from a taxonomy store.
type Picker struct {
	store  *taxonomy.Store
	logger *slog.Logger
	// randUint64N is swappable for deterministic tests.
	randUint64N func(n uint64) uint64
}

// NewPicker creates a Picker over the given store.
func NewPicker(store *taxonomy.Store, logger *slog.Logger) *Picker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Picker{
		store:       store,
		logger:      logger,
		randUint64N: rand.Uint64N,
	}
}

// PickRandom returns a uniformly-started random taxon satisfying the
// filter, or nil when no row in the entire index satisfies it.
func (p *Picker) PickRandom(filter taxonomy.Filter) (*taxonomy.Taxon, error) {
	bounds, err := p.store.GetIDRange()
	if err != nil {
		return nil, err
	}
	if bounds.Empty() {
		return nil, nil
	}

	start := bounds.Min + uint(p.randUint64N(uint64(bounds.Span())))
	return p.scanWithWrap(start, bounds, filter)
}

// PickForDate returns the taxon of the day: the same (date, filter) input
// always yields the same taxon, different dates will usually differ.
// Synonyms are always excluded.
func (p *Picker) PickForDate(date time.Time, filter taxonomy.Filter) (*taxonomy.Taxon, error) {
	bounds, err := p.store.GetIDRange()
	if err != nil {
		return nil, err
	}
	if bounds.Empty() {
		return nil, nil
	}

	filter.IncludeSynonyms = false

	seed := dateSeed(date)
	rng := rand.New(rand.NewPCG(seed, seed))
	start := bounds.Min + uint(rng.Uint64N(uint64(bounds.Span())))

	return p.scanWithWrap(start, bounds, filter)
}

// scanWithWrap scans forward from start, then wraps to the bottom of the
// range. Two bounded scans cover the full range exactly once, so an empty
// result proves no row satisfies the filter.
func (p *Picker) scanWithWrap(start uint, bounds taxonomy.IDRange, filter taxonomy.Filter) (*taxonomy.Taxon, error) {
	taxon, err := p.store.ScanFrom(start, filter, taxonomy.Forward)
	if err != nil {
		return nil, err
	}
	if taxon != nil {
		return taxon, nil
	}

	if start == bounds.Min {
		return nil, nil
	}

	p.logger.Debug("wrapping scan to range start",
		"start", start,
		"min", bounds.Min)
	taxon, err = p.store.ScanFrom(bounds.Min, filter, taxonomy.Forward)
	if err != nil {
		return nil, err
	}
	if taxon == nil || taxon.ID >= start {
		// Nothing in [min, start) either: the filter matches no row.
		return nil, nil
	}
	return taxon, nil
}

// dateSeed derives a deterministic seed from the calendar date string.
func dateSeed(date time.Time) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(date.Format("2006-01-02")))
	return h.Sum64()
}
