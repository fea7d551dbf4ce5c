package enrichcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faunadex/internal/datastore"
	"faunadex/internal/provider"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := datastore.OpenMemory()
	require.NoError(t, err)
	store, err := New(db, nil)
	require.NoError(t, err)
	return store
}

func profileRecord(id string) *provider.Record {
	return &provider.Record{
		Kind:      provider.KindGBIF,
		Profile:   &provider.Profile{NativeID: id, CanonicalName: "Vulpes vulpes"},
		FetchedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func summaryRecord(extract string) *provider.Record {
	return &provider.Record{
		Kind:      provider.KindWikipedia,
		Summary:   &provider.Summary{Title: "Red fox", Extract: extract},
		FetchedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestGetMissIsAbsence(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec, err := store.Get(42, provider.KindGBIF)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPutThenGet(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	want := profileRecord("5219243")
	require.NoError(t, store.Put(42, want))

	got, err := store.Get(42, provider.KindGBIF)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Profile, got.Profile)

	// Same taxon, different provider is still a miss
	miss, err := store.Get(42, provider.KindWikipedia)
	require.NoError(t, err)
	assert.Nil(t, miss)

	// Different taxon, same provider is still a miss
	miss, err = store.Get(43, provider.KindGBIF)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestPutOverwritesLastWriteWins(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Put(42, profileRecord("old")))
	require.NoError(t, store.Put(42, profileRecord("new")))

	got, err := store.Get(42, provider.KindGBIF)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Profile.NativeID)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPutMultipleRecordsAtomically(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Put(42, profileRecord("1"), summaryRecord("a fox"), nil))

	records, err := store.GetAll(42)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotNil(t, records[provider.KindGBIF])
	assert.NotNil(t, records[provider.KindWikipedia])
}

func TestPutRejectsMalformedRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	// A record whose payload pointer is missing cannot be encoded; the
	// whole transaction must roll back, including the valid record.
	err := store.Put(42, profileRecord("1"), &provider.Record{Kind: provider.KindWikipedia})
	require.Error(t, err)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteRemovesAllProvidersForTaxon(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Put(42, profileRecord("1"), summaryRecord("a fox")))
	require.NoError(t, store.Put(43, profileRecord("2")))

	require.NoError(t, store.Delete(42))

	records, err := store.GetAll(42)
	require.NoError(t, err)
	assert.Empty(t, records)

	got, err := store.Get(43, provider.KindGBIF)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestClear(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Put(42, profileRecord("1")))
	require.NoError(t, store.Put(43, summaryRecord("a fox")))

	require.NoError(t, store.Clear())

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
