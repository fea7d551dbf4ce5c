// Package connectivity decides whether network fetches should be attempted
// at all.
//
// The gate caches a reachability verdict for a TTL window, honors a
// persisted user override, and accepts fast negative feedback from fetch
// clients that hit connection-level failures.
package connectivity

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"faunadex/internal/datastore"
	"faunadex/internal/httpclient"
)

const (
	verdictKey   = "online"
	probeTimeout = 5 * time.Second

	// forcedOfflineSetting is the settings-table key for the user override.
	forcedOfflineSetting = "forced_offline"
)

// Prober performs the actual reachability check. Swappable for tests.
type Prober interface {
	Probe(ctx context.Context) bool
}

// headProber checks reachability with a HEAD request against a stable
// external host. Any HTTP response counts as reachable; only transport
// errors count as offline.
type headProber struct {
	client *httpclient.Client
	url    string
}

func (p *headProber) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := p.client.Head(probeCtx, p.url)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Gate is the process-wide connectivity authority.
//
// The cached verdict and its TTL are owned by a thread-safe cache; probes
// are serialized so concurrent callers trigger at most one network check.
type Gate struct {
	prober        Prober
	verdicts      *gocache.Cache
	ttl           time.Duration
	probeMu       sync.Mutex
	forcedOffline atomic.Bool
	db            *gorm.DB
	logger        *slog.Logger
}

// New creates a Gate probing the given URL, with verdicts cached for ttl.
// The forced-offline override is restored from the settings table; db may
// be nil, in which case the override is process-local only.
func New(client *httpclient.Client, probeURL string, ttl time.Duration, db *gorm.DB, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		prober:   &headProber{client: client, url: probeURL},
		verdicts: gocache.New(ttl, 2*ttl),
		ttl:      ttl,
		db:       db,
		logger:   logger,
	}
	g.restoreOverride()
	return g
}

// SetProber replaces the reachability check, primarily for tests.
func (g *Gate) SetProber(p Prober) {
	g.probeMu.Lock()
	defer g.probeMu.Unlock()
	g.prober = p
}

func (g *Gate) restoreOverride() {
	if g.db == nil {
		return
	}
	value, err := datastore.GetSetting(g.db, forcedOfflineSetting)
	if err != nil {
		g.logger.Warn("failed to restore forced-offline override", "error", err)
		return
	}
	forced, _ := strconv.ParseBool(value)
	g.forcedOffline.Store(forced)
	if forced {
		g.logger.Info("forced-offline override restored")
	}
}

// IsOnline reports whether network fetches should be attempted. When the
// user override is set it always returns false; otherwise the cached
// verdict is returned, refreshed by a probe after the TTL expires.
func (g *Gate) IsOnline(ctx context.Context) bool {
	if g.forcedOffline.Load() {
		return false
	}

	if verdict, found := g.verdicts.Get(verdictKey); found {
		return verdict.(bool)
	}

	// Serialize probing; re-check the cache once the lock is held so
	// waiters reuse the verdict of the probe that beat them to it.
	g.probeMu.Lock()
	defer g.probeMu.Unlock()

	if verdict, found := g.verdicts.Get(verdictKey); found {
		return verdict.(bool)
	}

	online := g.prober.Probe(ctx)
	g.verdicts.Set(verdictKey, online, g.ttl)
	g.logger.Debug("reachability probe completed", "online", online)
	return online
}

// SetOffline is the fast negative-feedback path: a fetch client that saw a
// connection-level failure flips the state immediately, without waiting
// for the TTL to expire. The state only returns to online through a fresh
// successful probe.
func (g *Gate) SetOffline() {
	g.verdicts.Set(verdictKey, false, g.ttl)
	g.logger.Info("connectivity marked offline by fetch failure")
}

// ForceOffline persists the user override. While set, IsOnline always
// reports false regardless of actual reachability.
func (g *Gate) ForceOffline(forced bool) error {
	g.forcedOffline.Store(forced)
	if g.db == nil {
		return nil
	}
	return datastore.SetSetting(g.db, forcedOfflineSetting, strconv.FormatBool(forced))
}

// ForcedOffline reports whether the user override is currently set.
func (g *Gate) ForcedOffline() bool {
	return g.forcedOffline.Load()
}
