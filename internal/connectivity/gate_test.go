package connectivity

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faunadex/internal/datastore"
)

type fakeProber struct {
	online atomic.Bool
	calls  atomic.Int32
}

func (p *fakeProber) Probe(context.Context) bool {
	p.calls.Add(1)
	return p.online.Load()
}

func newTestGate(t *testing.T, ttl time.Duration) (*Gate, *fakeProber) {
	t.Helper()

	db, err := datastore.Open(filepath.Join(t.TempDir(), "cache.db"), false)
	require.NoError(t, err)

	gate := New(nil, "http://unused.invalid/", ttl, db, nil)
	prober := &fakeProber{}
	prober.online.Store(true)
	gate.SetProber(prober)
	return gate, prober
}

func TestVerdictIsCachedForTTL(t *testing.T) {
	t.Parallel()

	gate, prober := newTestGate(t, time.Minute)
	ctx := context.Background()

	assert.True(t, gate.IsOnline(ctx))
	assert.True(t, gate.IsOnline(ctx))
	assert.True(t, gate.IsOnline(ctx))
	assert.Equal(t, int32(1), prober.calls.Load())
}

func TestVerdictExpires(t *testing.T) {
	t.Parallel()

	gate, prober := newTestGate(t, 30*time.Millisecond)
	ctx := context.Background()

	assert.True(t, gate.IsOnline(ctx))
	time.Sleep(60 * time.Millisecond)
	prober.online.Store(false)
	assert.False(t, gate.IsOnline(ctx))
	assert.Equal(t, int32(2), prober.calls.Load())
}

func TestSetOfflineInvalidatesImmediately(t *testing.T) {
	t.Parallel()

	gate, prober := newTestGate(t, time.Minute)
	ctx := context.Background()

	require.True(t, gate.IsOnline(ctx))

	gate.SetOffline()
	assert.False(t, gate.IsOnline(ctx))
	// No new probe was needed; the negative verdict was injected directly
	assert.Equal(t, int32(1), prober.calls.Load())
}

func TestForcedOfflineShortCircuitsProbe(t *testing.T) {
	t.Parallel()

	gate, prober := newTestGate(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, gate.ForceOffline(true))
	assert.False(t, gate.IsOnline(ctx))
	assert.Zero(t, prober.calls.Load())
	assert.True(t, gate.ForcedOffline())

	require.NoError(t, gate.ForceOffline(false))
	assert.True(t, gate.IsOnline(ctx))
}

func TestForcedOfflineSurvivesRestart(t *testing.T) {
	t.Parallel()

	db, err := datastore.Open(filepath.Join(t.TempDir(), "cache.db"), false)
	require.NoError(t, err)

	gate := New(nil, "http://unused.invalid/", time.Minute, db, nil)
	require.NoError(t, gate.ForceOffline(true))

	// A new gate over the same database restores the override
	restored := New(nil, "http://unused.invalid/", time.Minute, db, nil)
	assert.True(t, restored.ForcedOffline())
	assert.False(t, restored.IsOnline(context.Background()))
}
