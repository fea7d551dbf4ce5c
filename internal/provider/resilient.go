package provider

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"faunadex/internal/errors"
	"faunadex/internal/observability/metrics"
)

// OfflineSignaler receives the fast negative feedback when a fetch fails
// at the connection level. Implemented by the connectivity gate.
type OfflineSignaler interface {
	SetOffline()
}

// retryDelays is the fixed backoff schedule. Three retries after the
// initial attempt: 1s, 2s, 4s.
var retryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Resilient wraps a concrete provider with the fetch policy every
// provider shares:
//
//   - retry only on HTTP 429 and 503, with the fixed backoff schedule;
//     every other failure is terminal on the first occurrence
//   - absence (not found, or retries exhausted) degrades to a nil record
//     with a nil error, so callers never branch on provider errors
//   - a terminal connection-level failure reports the connectivity gate
//     offline; well-formed HTTP error responses never do
type Resilient struct {
	inner   Provider
	gate    OfflineSignaler
	logger  *slog.Logger
	metrics *metrics.EnrichmentMetrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewResilient wraps inner with the shared fetch policy. gate, logger and
// m may all be nil.
func NewResilient(inner Provider, gate OfflineSignaler, logger *slog.Logger, m *metrics.EnrichmentMetrics) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resilient{
		inner:   inner,
		gate:    gate,
		logger:  logger.With("provider", inner.Name()),
		metrics: m,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Name returns the wrapped provider's kind.
func (r *Resilient) Name() Kind {
	return r.inner.Name()
}

// FetchByNativeID fetches by provider-native identifier under the shared
// fetch policy.
func (r *Resilient) FetchByNativeID(ctx context.Context, id string) (*Record, error) {
	return r.fetch(ctx, "fetch_by_native_id", func(ctx context.Context) (*Record, error) {
		return r.inner.FetchByNativeID(ctx, id)
	})
}

// FetchByName fetches by scientific name under the shared fetch policy.
func (r *Resilient) FetchByName(ctx context.Context, name string) (*Record, error) {
	return r.fetch(ctx, "fetch_by_name", func(ctx context.Context) (*Record, error) {
		return r.inner.FetchByName(ctx, name)
	})
}

// Search runs a free-text query under the shared fetch policy. Absence
// degrades to an empty slice.
func (r *Resilient) Search(ctx context.Context, query string, limit int) ([]*Record, error) {
	var records []*Record
	_, err := r.fetch(ctx, "search", func(ctx context.Context) (*Record, error) {
		var err error
		records, err = r.inner.Search(ctx, query, limit)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Resilient) fetch(ctx context.Context, op string, do func(ctx context.Context) (*Record, error)) (*Record, error) {
	name := string(r.inner.Name())
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.ObserveFetchDuration(name, time.Since(start).Seconds())
		}
	}()

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, retryDelays[attempt-1]); err != nil {
				return nil, errors.New(err).
					Category(errors.CategoryCancellation).
					Component("provider").
					Build()
			}
		}

		if r.metrics != nil {
			r.metrics.IncrementFetchAttempts(name)
		}

		rec, err := do(ctx)
		if err == nil {
			return rec, nil
		}
		lastErr = err

		if errors.IsNotFound(err) {
			// Expected absence, not a failure
			return nil, nil
		}
		if !retryable(err) {
			break
		}
		r.logger.Debug("retrying after transient upstream failure",
			"operation", op,
			"attempt", attempt+1,
			"status", StatusCode(err))
	}

	// Terminal failure degrades to absence. Only a connection-level
	// failure is evidence of being offline.
	if IsConnFailure(lastErr) && r.gate != nil {
		r.gate.SetOffline()
	}
	if r.metrics != nil {
		r.metrics.IncrementFetchFailures(name)
	}
	r.logger.Warn("fetch degraded to absence",
		"operation", op,
		"error", lastErr)
	return nil, nil
}

// retryable reports whether a failure is worth another attempt: only
// rate limiting (429) and upstream overload (503) qualify.
func retryable(err error) bool {
	switch StatusCode(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}
